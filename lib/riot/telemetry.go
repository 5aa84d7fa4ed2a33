package riot

import (
	"riftlens-backend/lib/restyutil"
	"riftlens-backend/lib/telemetry"
)

var tracer = telemetry.Tracer("riftlens.lib.riot")

// SetInstrumentOutput dumps this client's http traffic. The transcript
// includes the X-Riot-Token header, so keep the output out of shared storage.
func (c *Client) SetInstrumentOutput(out restyutil.InstrumentOutput) {
	restyutil.InstrumentClient(c.http, out)
}
