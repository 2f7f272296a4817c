package inference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sagemakerruntime"
	"github.com/aws/aws-sdk-go/service/sagemakerruntime/sagemakerruntimeiface"
	"golang.org/x/sync/errgroup"
)

const (
	BackendRandomForest = "random_forest"
	BackendSageMaker    = "sagemaker"
)

// ErrArtifact wraps every failure to load the scaler or the classifier.
var ErrArtifact = errors.New("artifact load failed")

// ObjectOpener reads an object from S3-compatible storage.
type ObjectOpener interface {
	OpenObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

type Config struct {
	ScalerURI string
	ModelURI  string
	Backend   string

	SageMakerEndpoint string
	AWSRegion         string
}

// Loader resolves artifact URIs. Plain paths are read from disk and
// s3://bucket/key URIs through Objects.
type Loader struct {
	Objects   ObjectOpener
	SageMaker sagemakerruntimeiface.SageMakerRuntimeAPI
}

func (l *Loader) read(ctx context.Context, uri string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(uri, "s3://"); ok {
		bucket, key, found := strings.Cut(rest, "/")
		if !found || bucket == "" || key == "" {
			return nil, fmt.Errorf("invalid object uri %q", uri)
		}
		if l.Objects == nil {
			return nil, fmt.Errorf("object storage is not configured for %q", uri)
		}
		rc, err := l.Objects.OpenObject(ctx, bucket, key)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return os.ReadFile(uri)
}

func (l *Loader) LoadScaler(ctx context.Context, uri string) (*Scaler, error) {
	data, err := l.read(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("%w: scaler %s: %w", ErrArtifact, uri, err)
	}
	s, err := ParseScaler(data)
	if err != nil {
		return nil, fmt.Errorf("%w: scaler %s: %w", ErrArtifact, uri, err)
	}
	return s, nil
}

func (l *Loader) LoadForest(ctx context.Context, uri string) (*Forest, error) {
	data, err := l.read(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("%w: classifier %s: %w", ErrArtifact, uri, err)
	}
	f, err := ParseForest(data)
	if err != nil {
		return nil, fmt.Errorf("%w: classifier %s: %w", ErrArtifact, uri, err)
	}
	return f, nil
}

func (l *Loader) loadClassifier(ctx context.Context, cfg Config) (Classifier, error) {
	switch cfg.Backend {
	case "", BackendRandomForest:
		return l.LoadForest(ctx, cfg.ModelURI)
	case BackendSageMaker:
		client := l.SageMaker
		if client == nil {
			sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.AWSRegion)})
			if err != nil {
				return nil, fmt.Errorf("%w: aws session: %w", ErrArtifact, err)
			}
			client = sagemakerruntime.New(sess)
		}
		c, err := NewSageMakerClassifier(client, cfg.SageMakerEndpoint)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrArtifact, err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: unknown classifier backend %q", ErrArtifact, cfg.Backend)
	}
}

// LoadPipeline loads the scaler and the classifier concurrently. Any failure
// is returned wrapped in ErrArtifact.
func (l *Loader) LoadPipeline(ctx context.Context, cfg Config) (*Pipeline, error) {
	var (
		scaler     *Scaler
		classifier Classifier
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		scaler, err = l.LoadScaler(gctx, cfg.ScalerURI)
		return err
	})
	g.Go(func() error {
		var err error
		classifier, err = l.loadClassifier(gctx, cfg)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return NewPipeline(scaler, classifier)
}
