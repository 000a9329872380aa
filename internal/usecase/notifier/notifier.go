package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	gatewayv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/gateway/v1"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/errors"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/logger"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/redis"
)

// Notifier broadcasts market updates over Redis pub/sub. Each asset
// gets its own channel (<prefix>.<asset>) so subscribers can follow a
// single market without filtering.
type Notifier struct {
	channelPrefix string
	logger        *logger.Logger
	redisclient   redis.Client
}

// New creates a notifier publishing under the given channel prefix.
func New(redisclient redis.Client, channelPrefix string, log *logger.Logger) *Notifier {
	return &Notifier{
		channelPrefix: channelPrefix,
		redisclient:   redisclient,
		logger:        log,
	}
}

// PublishUpdate serializes the update and publishes it to the asset's
// channel. Zero subscribers is not an error.
func (n *Notifier) PublishUpdate(ctx context.Context, update *gatewayv1.MarketUpdate) error {
	buf, err := json.Marshal(update)
	if err != nil {
		return errors.NewTracer("market_update_marshal_error").Wrap(err)
	}

	channel := fmt.Sprintf("%s.%s", n.channelPrefix, update.Asset)
	receivers, err := n.redisclient.Publish(ctx, channel, buf)
	if err != nil {
		n.logger.ErrorContext(ctx, err, logger.Field{Key: "channel", Value: channel})
		return errors.NewErrorDetails(err.Error(), string(errors.RedisPublishError), "channel")
	}

	n.logger.DebugContext(ctx, "market update published",
		logger.Field{Key: "channel", Value: channel},
		logger.Field{Key: "version", Value: update.Version},
		logger.Field{Key: "receivers", Value: receivers},
	)
	return nil
}
