package datadragon

import (
	"riftlens-backend/lib/restyutil"
	"riftlens-backend/lib/telemetry"
)

var tracer = telemetry.Tracer("riftlens.lib.datadragon")

// SetInstrumentOutput dumps this client's http traffic.
func (c *Client) SetInstrumentOutput(out restyutil.InstrumentOutput) {
	restyutil.InstrumentClient(c.http, out)
}
