package main

import (
	"io"
	"os"

	"github.com/aligator/rsfs"
)

// put copies the host file source to name on the volume.
func put(fs *rsfs.Fs, source, name string) error {
	src, err := os.Open(source)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := fs.Create(name)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// get copies name from the volume to the host file destination.
func get(fs *rsfs.Fs, name, destination string) error {
	dst, err := os.Create(destination)
	if err != nil {
		return err
	}

	if err := cat(fs, name, dst); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// cat writes the content of name to w.
func cat(fs *rsfs.Fs, name string, w io.Writer) error {
	src, err := fs.Open(name)
	if err != nil {
		return err
	}
	defer src.Close()

	_, err = io.Copy(w, src)
	return err
}
