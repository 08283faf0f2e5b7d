package hash

import "fmt"

func errLocalDepthExceedsGlobal(i, localDepth, globalDepth uint32) error {
	return fmt.Errorf("hash: directory slot %d has local depth %d > global depth %d", i, localDepth, globalDepth)
}

func errInconsistentBucketMapping(i, j uint32) error {
	return fmt.Errorf("hash: directory slots %d and %d share a depth-masked prefix but map to different buckets", i, j)
}
