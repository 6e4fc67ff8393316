package main

import (
	"github.com/masmgr/githistory/cmd"
)

func main() {
	cmd.Run()
}
