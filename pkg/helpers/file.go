/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/
package helpers

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"
)

type FileHashesReader struct {
	fd     *os.File
	sha256 hash.Hash
	size   int64
}

func NewFileHashesReader(file string) (*FileHashesReader, error) {
	fd, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("error on open file %s: %s",
			file, err.Error())
	}
	return &FileHashesReader{
		fd:     fd,
		sha256: sha256.New(),
		size:   int64(0),
	}, nil
}

func (f *FileHashesReader) Read(b []byte) (int, error) {
	n, err := f.fd.Read(b)
	if err != nil {
		return n, err
	}

	if n > 0 {
		f.size += int64(n)

		_, err = f.sha256.Write(b[:n])
		if err != nil {
			return n, err
		}
	}

	return n, err
}

func (f *FileHashesReader) Close() error {
	return f.fd.Close()
}

func (f *FileHashesReader) Size() int64 {
	return f.size
}

func (f *FileHashesReader) Sha256() string {
	return fmt.Sprintf("%x", f.sha256.Sum(nil))
}

func EnsureDirWithoutIds(dir string, perm os.FileMode) error {
	return os.MkdirAll(dir, perm)
}

func GetFileHashes(f string) (*FileHashesReader, error) {
	reader, err := NewFileHashesReader(f)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	buffer := make([]byte, 1024)
	for {
		_, err = reader.Read(buffer)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
	}

	return reader, nil
}

// GetFileSha256 is the checksum cargo's registry index records for
// every published crate tarball; mirror and sync both verify it
// against the checksum carried on the resolved Krate before trusting
// a downloaded or cached blob.
func GetFileSha256(f string) (string, error) {
	reader, err := GetFileHashes(f)
	if err != nil {
		return "", err
	}
	return reader.Sha256(), nil
}
