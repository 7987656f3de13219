package model

// Volume describes the capacity of the file system holding a path
type Volume struct {
	Path       string
	TotalBytes int64
	FreeBytes  int64
}

// UsedBytes returns bytes used on this volume
func (v Volume) UsedBytes() int64 {
	return v.TotalBytes - v.FreeBytes
}

// UsedPercent returns percentage of the volume used
func (v Volume) UsedPercent() float64 {
	if v.TotalBytes == 0 {
		return 0
	}
	return float64(v.UsedBytes()) / float64(v.TotalBytes) * 100
}

// VolumeFor returns capacity information for the volume containing path
func VolumeFor(path string) (Volume, error) {
	total, free, err := diskSpace(path)
	if err != nil {
		return Volume{Path: path}, err
	}
	return Volume{Path: path, TotalBytes: total, FreeBytes: free}, nil
}
