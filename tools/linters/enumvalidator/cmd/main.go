package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/librenews/skywire/tools/linters/enumvalidator"
)

func main() {
	singlechecker.Main(enumvalidator.Analyzer)
}
