package main

import (
	"context"
	"riftlens-backend/cmd/riftlens-cli/commands"
	"riftlens-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "riftlens-cli")
	telemetry.InitSlog(false)
	commands.ExecuteContext(context.Background())
}
