package dailybilling

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	log "github.com/sirupsen/logrus"
)

// LambdaHandler is invoked by a scheduled CloudWatch event.
type LambdaHandler func(ctx context.Context, event events.CloudWatchEvent) (bool, error)

// NewLambdaHandler returns a handler that performs one run per invocation and
// reports success as a boolean to the invoking scheduler.
func NewLambdaHandler(logger log.FieldLogger, job Job) LambdaHandler {
	return func(ctx context.Context, event events.CloudWatchEvent) (bool, error) {
		fields := log.Fields{
			"eventID":    event.ID,
			"eventTime":  event.Time,
			"detailType": event.DetailType,
		}
		if lc, ok := lambdacontext.FromContext(ctx); ok {
			fields["requestID"] = lc.AwsRequestID
		}
		logger := logger.WithFields(fields)

		result, err := job.Run(ctx)
		if err != nil {
			logger.WithError(err).Errorf("daily billing run failed")
			return false, err
		}
		logger.WithField("outcome", result.Outcome).Infof("daily billing run succeeded")
		return true, nil
	}
}

// LambdaTarget returns the function name of the running Lambda, which names
// its checkpoint, or fallback outside Lambda.
func LambdaTarget(fallback string) string {
	if lambdacontext.FunctionName != "" {
		return lambdacontext.FunctionName
	}
	return fallback
}
