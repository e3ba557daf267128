package pubsub

import "google.golang.org/api/option"

// PublisherOption customises the underlying client.
type PublisherOption func(*publisherOptions)

type publisherOptions struct {
	client []option.ClientOption
}

// WithClientOptions forwards Google API client options (endpoint, credentials).
func WithClientOptions(opts ...option.ClientOption) PublisherOption {
	return func(o *publisherOptions) {
		o.client = append(o.client, opts...)
	}
}
