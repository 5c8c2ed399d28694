package kafka

import "errors"

// ErrProducerClosed 生产者已关闭
var ErrProducerClosed = errors.New("kafka: producer is closed")
