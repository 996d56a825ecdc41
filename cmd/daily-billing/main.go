package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/operator-framework/daily-billing/pkg/dailybilling"
)

const envPrefix = "DAILY_BILLING"

var (
	cfg = dailybilling.DefaultConfig()

	logLevelStr         string
	logFullTimestamp    bool
	logDisableTimestamp bool
	logJSON             bool
)

// legacyEnv maps the environment variables of earlier deployments onto flags.
var legacyEnv = map[string]string{
	"REGION":    "region",
	"S3_BUCKET": "s3-bucket",
	"S3_FOLDER": "s3-folder",
}

var rootCmd = &cobra.Command{
	Use:   "daily-billing",
	Short: "publishes a Daily Charge metric derived from AWS EstimatedCharges",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return applyEnv(cmd.Flags())
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		if runningInLambda() {
			runLambda(cmd, nil)
			return nil
		}
		return cmd.Help()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "performs a single run and prints its result",
	Run:   runOnce,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "runs on a cron schedule and serves health, metrics and on-demand runs over HTTP",
	Run:   runServe,
}

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "runs as an AWS Lambda handler for scheduled CloudWatch events",
	Run:   runLambda,
}

func AddCommands() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(lambdaCmd)
}

func init() {
	// globally set time to UTC
	time.Local = time.UTC

	cfg.Target = dailybilling.LambdaTarget(dailybilling.DefaultTarget)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logLevelStr, "log-level", log.InfoLevel.String(), "log level")
	flags.BoolVar(&logFullTimestamp, "log-timestamp", true, "log full timestamp if true, otherwise log time since startup")
	flags.BoolVar(&logDisableTimestamp, "disable-timestamp", false, "disable timestamp logging")
	flags.BoolVar(&logJSON, "log-json", false, "log as JSON, one object per line")

	flags.StringVar(&cfg.Region, "region", cfg.Region, "the AWS region of the checkpoint bucket and metrics")
	flags.StringVar(&cfg.Bucket, "s3-bucket", cfg.Bucket, "the S3 bucket holding checkpoints")
	flags.StringVar(&cfg.Folder, "s3-folder", cfg.Folder, "the key prefix for checkpoints inside the bucket")
	flags.StringVar(&cfg.Target, "target", cfg.Target, "names the checkpoint; defaults to the Lambda function name when running in Lambda")
	flags.StringVar(&cfg.CheckpointStoreURL, "checkpoint-store", "", "if non-empty, a s3://, file:// or mem:// URL used instead of --s3-bucket for checkpoints")

	flags.StringVar(&cfg.SourceNamespace, "source-namespace", cfg.SourceNamespace, "the namespace of the cumulative billing metric")
	flags.StringVar(&cfg.SourceMetricName, "source-metric", cfg.SourceMetricName, "the name of the cumulative billing metric")
	flags.StringVar(&cfg.Currency, "currency", cfg.Currency, "the value of the Currency dimension")
	flags.StringVar(&cfg.DailyNamespace, "daily-namespace", cfg.DailyNamespace, "the namespace the Daily Charge metric is published to")
	flags.StringVar(&cfg.DailyMetricName, "daily-metric", cfg.DailyMetricName, "the name of the published daily metric")
	flags.DurationVar(&cfg.Period, "period", cfg.Period, "the statistics period used when reading metrics, a multiple of 1m")
	flags.StringVar(&cfg.Timezone, "timezone", cfg.Timezone, "the IANA timezone whose midnight separates billing days")

	serveCmd.Flags().StringVar(&cfg.Schedule, "schedule", cfg.Schedule, "the cron schedule runs are triggered on")
	serveCmd.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "the address the HTTP API listens on")
}

func main() {
	AddCommands()

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Fatalf("error executing command: %v", err)
	}
}

func runOnce(cmd *cobra.Command, args []string) {
	logger := newLogger()
	runner, err := dailybilling.New(logger, cfg)
	if err != nil {
		logger.WithError(err).Fatal("unable to setup daily-billing")
	}

	result, err := runner.Run(setupSignals())
	if err != nil {
		logger.WithError(err).Fatal("daily billing run failed")
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.WithError(err).Fatal("unable to write run result")
	}
}

func runServe(cmd *cobra.Command, args []string) {
	logger := newLogger()
	runner, err := dailybilling.New(logger, cfg)
	if err != nil {
		logger.WithError(err).Fatal("unable to setup daily-billing")
	}
	scheduler, err := dailybilling.NewScheduler(logger, runner, cfg.Schedule)
	if err != nil {
		logger.WithError(err).Fatal("unable to setup scheduler")
	}
	if err := dailybilling.Serve(setupSignals(), logger, cfg.ListenAddr, scheduler); err != nil {
		logger.WithError(err).Fatal("error occurred while daily-billing was serving")
	}
	logger.Infof("daily-billing has stopped")
}

func runLambda(cmd *cobra.Command, args []string) {
	logger := newLogger()
	runner, err := dailybilling.New(logger, cfg)
	if err != nil {
		logger.WithError(err).Fatal("unable to setup daily-billing")
	}
	logger.WithField("target", cfg.Target).Infof("starting Lambda handler")
	lambda.Start(dailybilling.NewLambdaHandler(logger, runner))
}

// runningInLambda reports whether the process was started by the Lambda runtime.
func runningInLambda() bool {
	return os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || os.Getenv("_LAMBDA_SERVER_PORT") != ""
}

func setupSignals() context.Context {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := <-sigs
		log.Infof("got signal %s, performing shutdown", sig)
		cancel()
	}()
	return ctx
}

func newLogger() log.FieldLogger {
	if logJSON {
		log.SetFormatter(&log.JSONFormatter{
			DisableTimestamp: logDisableTimestamp,
		})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:    logFullTimestamp,
			DisableTimestamp: logDisableTimestamp,
		})
	}

	logger := log.WithFields(log.Fields{
		"app": "daily-billing",
	})
	logLevel, err := log.ParseLevel(logLevelStr)
	if err != nil {
		logger.WithError(err).Fatalf("invalid log level: %s", logLevelStr)
	}
	logger.Infof("setting log level to %s", logLevel.String())
	logger.Logger.Level = logLevel
	return logger
}
