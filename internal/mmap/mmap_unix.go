//go:build unix

package mmap

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

var madvise = map[Advice]int{
	AdviceNormal:     unix.MADV_NORMAL,
	AdviceSequential: unix.MADV_SEQUENTIAL,
	AdviceRandom:     unix.MADV_RANDOM,
	AdviceWillNeed:   unix.MADV_WILLNEED,
	AdviceDontNeed:   unix.MADV_DONTNEED,
}

func mapFile(f *os.File, size int) ([]byte, func() error, error) {
	return mapRegion(int(f.Fd()), size, unix.PROT_READ, unix.MAP_SHARED)
}

func mapAnonymous(size int) ([]byte, func() error, error) {
	return mapRegion(-1, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

func mapRegion(fd, size, prot, flags int) ([]byte, func() error, error) {
	data, err := unix.Mmap(fd, 0, size, prot, flags)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return unix.Munmap(data) }, nil
}

func advise(data []byte, a Advice) error {
	adv, ok := madvise[a]
	if !ok {
		adv = unix.MADV_NORMAL
	}
	// EINVAL for unaligned sub-slices; the hint is optional.
	if err := unix.Madvise(data, adv); err != nil && !errors.Is(err, unix.EINVAL) {
		return err
	}
	return nil
}
