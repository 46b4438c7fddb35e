package main

import (
	"github.com/ssargent/kvsdb/cmd/kvs/cmd"
)

func main() {
	cmd.Execute()
}
