package main

import (
	"errors"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// errSilentExit has already reported its outcome.
		if errors.Is(err, errSilentExit) {
			os.Exit(1)
		}

		exitOnError(err)
	}
}
