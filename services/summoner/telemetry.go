package summoner

import (
	"riftlens-backend/lib/telemetry"
)

var tracer = telemetry.Tracer("riftlens.services.summoner")
