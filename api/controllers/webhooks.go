package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/yvoloshin/paylink-backend/api/responses"
	"github.com/yvoloshin/paylink-backend/internal/webhooks/channel"
	"github.com/yvoloshin/paylink-backend/pkg/logger"
)

// ChannelWebhook receives inbound channel events. The transport retries on
// anything but success, so the ack is fixed regardless of what handling did;
// replay safety lives in the engine's dedup layers. Decoding is lenient: the
// gateway adds fields freely and unknown ones must not drop events.
func ChannelWebhook(svc channel.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer io.Copy(io.Discard, r.Body)

		var payload channel.Payload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			if logg != nil {
				logg.Error(ctx, "webhook.decode", err)
			}
			responses.WriteSuccess(w, map[string]string{"status": "received"})
			return
		}

		if svc != nil {
			svc.HandleEvent(ctx, payload)
		}
		responses.WriteSuccess(w, map[string]string{"status": "received"})
	}
}
