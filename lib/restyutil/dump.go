package restyutil

import (
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// DumpOutput receives a rendered request/response exchange. Outputs must
// tolerate being called from multiple requests in flight.
type DumpOutput interface {
	Write(id string, contents string)
}

// DumpExchanges writes every request/response pair the client performs to
// the output. Useful when the portal's markup or endpoints drift and the
// raw traffic is needed to diagnose it. A nil output is a no-op.
func DumpExchanges(client *resty.Client, output DumpOutput) {
	if output == nil {
		return
	}

	var idcounter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := strconv.FormatUint(atomic.AddUint64(&idcounter, 1), 10)
		output.Write(id, formatHttpMessage(res))
		return nil
	})
}
