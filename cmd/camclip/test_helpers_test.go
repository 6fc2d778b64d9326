package main

import (
	"io"
	"os"
)

func ioPipe() (io.Reader, io.WriteCloser) {
	reader, writer, err := os.Pipe()
	if err != nil {
		panic(err)
	}
	return reader, writer
}
