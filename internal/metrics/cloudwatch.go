// Package metrics provides CloudWatch-backed request metrics for the API
// server. The collector is fire-and-forget: CloudWatch failures are logged
// and never surface to the request path.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"labsite/internal/core"
)

// putTimeout bounds each PutMetricData call so a slow CloudWatch endpoint
// cannot pile up goroutines indefinitely.
const putTimeout = 5 * time.Second

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

var _ core.MetricsCollector = (*CloudWatchCollector)(nil)

// CloudWatchCollector emits per-request metrics to AWS CloudWatch.
//
// Metrics emitted:
//   - RequestCount: Dims {Method, Endpoint, Status} -- one per completed request
//   - RequestLatency: Dims {Method, Endpoint} -- handler duration in milliseconds
type CloudWatchCollector struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchCollector creates a collector publishing to the given namespace.
func NewCloudWatchCollector(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchCollector{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordRequest publishes RequestCount and RequestLatency for a completed
// request. Emission happens on a background goroutine so the middleware
// never blocks on CloudWatch.
func (c *CloudWatchCollector) RecordRequest(method, endpoint, status string, duration time.Duration) {
	go c.put(method, endpoint, status, duration)
}

func (c *CloudWatchCollector) put(method, endpoint, status string, duration time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), putTimeout)
	defer cancel()

	requestDims := []cwtypes.Dimension{
		{Name: aws.String("Method"), Value: aws.String(method)},
		{Name: aws.String("Endpoint"), Value: aws.String(endpoint)},
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(c.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String("RequestCount"),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: append(requestDims, cwtypes.Dimension{
					Name:  aws.String("Status"),
					Value: aws.String(status),
				}),
			},
			{
				MetricName: aws.String("RequestLatency"),
				Value:      aws.Float64(float64(duration.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
				Dimensions: requestDims,
			},
		},
	}

	if _, err := c.client.PutMetricData(ctx, input); err != nil {
		c.logger.Error("failed to record request metrics",
			"error", err.Error(),
			"method", method,
			"endpoint", endpoint,
			"status", status,
		)
	}
}

var _ core.MetricsCollector = (*NoopCollector)(nil)

// NoopCollector discards all metrics. Used when no CloudWatch namespace
// is configured, such as local development.
type NoopCollector struct{}

func (NoopCollector) RecordRequest(_, _, _ string, _ time.Duration) {}
