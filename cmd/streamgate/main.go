package main

import (
	"fmt"
	"os"

	_ "github.com/kbukum/streamgate/objectstore/local"
	_ "github.com/kbukum/streamgate/objectstore/memory"
	_ "github.com/kbukum/streamgate/objectstore/s3"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
