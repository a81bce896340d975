package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// CloudWatchAPI is the slice of the CloudWatch client the reporter uses.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

const maxDatumsPerCall = 20

// CloudWatchReporter buffers measurements and ships them with
// PutMetricData on every flush.
type CloudWatchReporter struct {
	client    CloudWatchAPI
	namespace string
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	pending []types.MetricDatum
}

var _ Recorder = (*CloudWatchReporter)(nil)

// NewCloudWatchReporter creates a reporter for namespace.
func NewCloudWatchReporter(client CloudWatchAPI, namespace string, logger *zap.Logger) *CloudWatchReporter {
	return &CloudWatchReporter{
		client:    client,
		namespace: namespace,
		logger:    logger,
		now:       time.Now,
	}
}

func (r *CloudWatchReporter) ObserveOperation(operation string, duration time.Duration, err error) {
	dims := []types.Dimension{
		{Name: aws.String("Operation"), Value: aws.String(operation)},
		{Name: aws.String("Status"), Value: aws.String(Status(err))},
	}
	r.add(
		r.datum("OperationLatency", dims, float64(duration.Microseconds())/1000, types.StandardUnitMilliseconds),
		r.datum("OperationCount", dims, 1, types.StandardUnitCount),
	)
}

func (r *CloudWatchReporter) TraversalTruncated(reason string) {
	r.add(r.datum("TraversalTruncated", []types.Dimension{
		{Name: aws.String("Reason"), Value: aws.String(reason)},
	}, 1, types.StandardUnitCount))
}

func (r *CloudWatchReporter) IngestedRecord(outcome string) {
	r.add(r.datum("IngestedRecords", []types.Dimension{
		{Name: aws.String("Outcome"), Value: aws.String(outcome)},
	}, 1, types.StandardUnitCount))
}

// Flush sends everything buffered so far. Data from a failed call is
// dropped.
func (r *CloudWatchReporter) Flush(ctx context.Context) error {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	for i := 0; i < len(pending); i += maxDatumsPerCall {
		end := min(i+maxDatumsPerCall, len(pending))
		_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(r.namespace),
			MetricData: pending[i:end],
		})
		if err != nil {
			return fmt.Errorf("failed to put metric data: %w", err)
		}
	}
	return nil
}

// Run flushes every interval until ctx ends, then flushes once more.
func (r *CloudWatchReporter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.Flush(ctx); err != nil {
				r.logger.Warn("Failed to send metrics", zap.Error(err))
			}
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			if err := r.Flush(flushCtx); err != nil {
				r.logger.Warn("Failed to send final metrics", zap.Error(err))
			}
			cancel()
			return
		}
	}
}

func (r *CloudWatchReporter) datum(name string, dims []types.Dimension, value float64, unit types.StandardUnit) types.MetricDatum {
	return types.MetricDatum{
		MetricName: aws.String(name),
		Dimensions: dims,
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(r.now()),
	}
}

func (r *CloudWatchReporter) add(data ...types.MetricDatum) {
	r.mu.Lock()
	r.pending = append(r.pending, data...)
	r.mu.Unlock()
}
