package main

import (
	"github.com/JakeFAU/transit-ingest/cmd"
)

func main() {
	cmd.Execute()
}
