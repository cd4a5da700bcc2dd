package main

import (
	"os"

	// Embed the IANA database so schedule resolution does not depend on the
	// host's zoneinfo files.
	_ "time/tzdata"

	"github.com/planwheel/planwheel/taskservice"
)

func main() {
	if err := taskservice.Run(); err != nil {
		os.Exit(1)
	}
}
