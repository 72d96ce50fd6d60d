package main

import "github.com/spec-kit/triage-service/internal/cli"

func main() {
	if err := cli.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}
