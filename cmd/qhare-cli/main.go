package main

import (
	"context"

	"qhare-bridge/cmd/qhare-cli/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
