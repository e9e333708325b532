package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"doorbell-uploader/cmd"
)

func main() {
	if err := cmd.RootCmd().ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, cmd.ErrFailed) {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		}
		os.Exit(1)
	}
}
