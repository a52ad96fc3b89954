package adapt

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Bind decodes a record into out, matching attribute names against json
// struct tags the way the wire codecs do. RFC 3339 strings bind to time.Time
// fields.
func Bind(rec Record, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     out,
		TagName:    "json",
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	if err := dec.Decode(map[string]any(rec)); err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	return nil
}
