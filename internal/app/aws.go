package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"swellwatch/internal/config"
)

// AWSClients are the SDK clients used by the worker and scheduler.
type AWSClients struct {
	SQS        *sqs.Client
	CloudWatch *cloudwatch.Client
}

// NewAWSClients loads the default credential chain. A non-empty
// EndpointURL points both clients at LocalStack.
func NewAWSClients(ctx context.Context, cfg config.AWSConfig) (*AWSClients, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	endpoint := cfg.EndpointURL
	return &AWSClients{
		SQS: sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}),
		CloudWatch: cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}),
	}, nil
}
