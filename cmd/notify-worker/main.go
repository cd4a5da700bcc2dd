package main

import (
	"os"

	_ "time/tzdata"

	"github.com/planwheel/planwheel/notifyworker"
)

func main() {
	if err := notifyworker.Run(); err != nil {
		os.Exit(1)
	}
}
