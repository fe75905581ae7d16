package main

import "github.com/goplus/cmkit/cmd/cmkit/internal"

func main() {
	internal.Execute()
}
