// Package kafka holds the broker connection settings shared by the
// consumer step: configuration, dialer construction with optional TLS and
// SASL, error classification and reader metrics.
//
// Broker addresses and the consumer group come from the resolved
// KAFKA_BROKER and KAFKA_GROUP_ID keys. The topic and session timeout are
// fixed (DefaultTopic, DefaultSessionTimeout). The rest may be tuned in
// config.yml:
//
//	kafka:
//	  start_offset: first
//	  heartbeat_interval: 2s
//
// The consumer step itself lives in kafka/consumer.
package kafka
