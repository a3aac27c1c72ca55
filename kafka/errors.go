package kafka

import (
	"errors"
	"io"
	"net"
	"syscall"

	kafkago "github.com/segmentio/kafka-go"
)

// fatalCodes are broker error codes the drain loop cannot recover from by
// waiting: the topic or group is misconfigured or access is denied.
var fatalCodes = map[kafkago.Error]bool{
	kafkago.MessageSizeTooLarge:        true,
	kafkago.InvalidTopic:               true,
	kafkago.UnknownTopicOrPartition:    true,
	kafkago.TopicAuthorizationFailed:   true,
	kafkago.GroupAuthorizationFailed:   true,
	kafkago.ClusterAuthorizationFailed: true,
	kafkago.SASLAuthenticationFailed:   true,
}

// IsConnectionError reports whether err comes from the transport rather
// than from the broker's protocol layer.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, kafkago.BrokerNotAvailable) ||
		errors.Is(err, kafkago.NetworkException)
}

// IsRetryableError reports whether a read may succeed if attempted again.
// Broker codes defer to kafka-go's own Temporary classification.
func IsRetryableError(err error) bool {
	if err == nil || IsNonRetryableError(err) {
		return false
	}
	var code kafkago.Error
	if errors.As(err, &code) {
		return code.Temporary() || code == kafkago.BrokerNotAvailable
	}
	if IsConnectionError(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsNonRetryableError reports whether err carries one of the fatal broker
// codes.
func IsNonRetryableError(err error) bool {
	var code kafkago.Error
	if !errors.As(err, &code) {
		return false
	}
	return fatalCodes[code]
}
