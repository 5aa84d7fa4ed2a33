package ugg

import (
	"riftlens-backend/lib/restyutil"
	"riftlens-backend/lib/telemetry"
)

var tracer = telemetry.Tracer("riftlens.lib.scrapers.ugg")

// SetInstrumentOutput dumps this client's http traffic, used while
// debugging selector breakage.
func (c *Client) SetInstrumentOutput(out restyutil.InstrumentOutput) {
	restyutil.InstrumentClient(c.http, out)
}
