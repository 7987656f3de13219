//go:build !unix && !windows

package model

import "errors"

func diskSpace(path string) (total, free int64, err error) {
	return 0, 0, errors.New("disk space not supported on this platform")
}
