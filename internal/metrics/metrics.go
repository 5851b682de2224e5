// Package metrics publishes named counters and durations with dimensions.
package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	UnitCount   = cloudwatch.StandardUnitCount
	UnitSeconds = cloudwatch.StandardUnitSeconds
)

// Datum is a single metric value.
type Datum struct {
	Name       string
	Value      float64
	Unit       string
	Dimensions map[string]string
	Timestamp  time.Time
}

// Sink accepts batches of datums.
type Sink interface {
	Put(ctx context.Context, datums []Datum) error
}

// LogSink writes each datum as a structured log line.
type LogSink struct{}

func (LogSink) Put(_ context.Context, datums []Datum) error {
	for _, d := range datums {
		dims := zerolog.Dict()
		for _, k := range sortedKeys(d.Dimensions) {
			dims.Str(k, d.Dimensions[k])
		}
		log.Info().
			Str("metric", d.Name).
			Float64("value", d.Value).
			Str("unit", d.Unit).
			Dict("dimensions", dims).
			Msg("metric")
	}
	return nil
}

// CloudWatchSink publishes datums with PutMetricData under a fixed namespace.
type CloudWatchSink struct {
	client    cloudwatchiface.CloudWatchAPI
	namespace string
}

func NewCloudWatchSink(client cloudwatchiface.CloudWatchAPI, namespace string) *CloudWatchSink {
	return &CloudWatchSink{client: client, namespace: namespace}
}

func (s *CloudWatchSink) Put(ctx context.Context, datums []Datum) error {
	if len(datums) == 0 {
		return nil
	}
	data := make([]*cloudwatch.MetricDatum, 0, len(datums))
	for _, d := range datums {
		md := &cloudwatch.MetricDatum{
			MetricName: aws.String(d.Name),
			Value:      aws.Float64(d.Value),
			Unit:       aws.String(d.Unit),
		}
		if !d.Timestamp.IsZero() {
			md.Timestamp = aws.Time(d.Timestamp)
		}
		for _, k := range sortedKeys(d.Dimensions) {
			md.Dimensions = append(md.Dimensions, &cloudwatch.Dimension{
				Name:  aws.String(k),
				Value: aws.String(d.Dimensions[k]),
			})
		}
		data = append(data, md)
	}
	if _, err := s.client.PutMetricDataWithContext(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(s.namespace),
		MetricData: data,
	}); err != nil {
		return fmt.Errorf("put metric data to %s: %w", s.namespace, err)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Recorder emits the service's metrics. Sink failures are logged and
// never returned to callers.
type Recorder struct {
	sink Sink
	now  func() time.Time
}

func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink, now: time.Now}
}

// BusinessHoursCheck counts one decision by result (open, closed, failopen, invalid).
func (r *Recorder) BusinessHoursCheck(ctx context.Context, result string) {
	r.put(ctx, Datum{
		Name:       "BusinessHoursCheck",
		Value:      1,
		Unit:       UnitCount,
		Dimensions: map[string]string{"Result": result},
	})
}

// CallAction counts a call log action, and also by customer type when the
// caller's support level is known.
func (r *Recorder) CallAction(ctx context.Context, action, customerType string) {
	datums := []Datum{{
		Name:       "CallCount",
		Value:      1,
		Unit:       UnitCount,
		Dimensions: map[string]string{"Action": action},
	}}
	if customerType != "" {
		datums = append(datums, Datum{
			Name:       "CallCountByCustomerType",
			Value:      1,
			Unit:       UnitCount,
			Dimensions: map[string]string{"CustomerType": customerType, "Action": action},
		})
	}
	r.put(ctx, datums...)
}

// CallDuration records the length of a finished call.
func (r *Recorder) CallDuration(ctx context.Context, customerType string, seconds int) {
	if customerType == "" {
		customerType = "Unknown"
	}
	r.put(ctx, Datum{
		Name:       "CallDuration",
		Value:      float64(seconds),
		Unit:       UnitSeconds,
		Dimensions: map[string]string{"CustomerType": customerType},
	})
}

func (r *Recorder) put(ctx context.Context, datums ...Datum) {
	if r == nil || r.sink == nil {
		return
	}
	now := r.now()
	for i := range datums {
		datums[i].Timestamp = now
	}
	if err := r.sink.Put(ctx, datums); err != nil {
		log.Warn().Err(err).Str("metric", datums[0].Name).Msg("failed to send metric")
	}
}
