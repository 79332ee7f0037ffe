// Package configmap loads configuration from a Kubernetes ConfigMap or
// Secret.
//
// Data keys map to configuration keys with "__" standing for the
// delimiter, since Kubernetes keys cannot contain ":". With Watch set the
// provider follows the object and reloads on every change.
package configmap

import (
	"context"
	"fmt"
	"strings"
	"sync"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"

	"github.com/zoobzio/protected/configuration"
)

// Kind selects the object type read by Source.
type Kind string

const (
	KindConfigMap Kind = "ConfigMap"
	KindSecret    Kind = "Secret"
)

// Source reads the data of one ConfigMap or Secret.
type Source struct {
	Client    kubernetes.Interface
	Namespace string
	Name      string
	Kind      Kind // ConfigMap when empty
	Optional  bool
	Watch     bool
}

// Provider serves the object's data.
type Provider struct {
	*configuration.DataProvider
	source Source

	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

// Build returns a provider for the object.
func (s *Source) Build(configuration.Builder) (configuration.Provider, error) {
	if s.Client == nil {
		return nil, fmt.Errorf("configmap: client required")
	}
	if s.Name == "" {
		return nil, fmt.Errorf("configmap: name required")
	}
	src := *s
	if src.Kind == "" {
		src.Kind = KindConfigMap
	}
	if src.Kind != KindConfigMap && src.Kind != KindSecret {
		return nil, fmt.Errorf("configmap: unsupported kind %q", src.Kind)
	}

	p := &Provider{source: src}
	var opts []configuration.ProviderOption
	if src.Watch {
		opts = append(opts, configuration.WithReload())
	}
	p.DataProvider = configuration.NewDataProvider(p.read, opts...)
	return p, nil
}

// Load reads the object and, when watching, starts the watch once.
func (p *Provider) Load() error {
	if err := p.DataProvider.Load(); err != nil {
		return err
	}
	if !p.source.Watch {
		return nil
	}

	var err error
	p.once.Do(func() {
		err = p.watch()
	})
	return err
}

func (p *Provider) read() (map[string]string, error) {
	ctx := context.Background()
	core := p.source.Client.CoreV1()

	switch p.source.Kind {
	case KindSecret:
		secret, err := core.Secrets(p.source.Namespace).Get(ctx, p.source.Name, metav1.GetOptions{})
		if err != nil {
			return p.missing(err)
		}
		return fromSecret(secret), nil
	default:
		cm, err := core.ConfigMaps(p.source.Namespace).Get(ctx, p.source.Name, metav1.GetOptions{})
		if err != nil {
			return p.missing(err)
		}
		return fromConfigMap(cm), nil
	}
}

func (p *Provider) missing(err error) (map[string]string, error) {
	if p.source.Optional && apierrors.IsNotFound(err) {
		return map[string]string{}, nil
	}
	return nil, fmt.Errorf("configmap: get %s %s/%s: %w", p.source.Kind, p.source.Namespace, p.source.Name, err)
}

func (p *Provider) watch() error {
	ctx, cancel := context.WithCancel(context.Background())
	opts := metav1.ListOptions{FieldSelector: fields.OneTermEqualSelector("metadata.name", p.source.Name).String()}

	var (
		w   watch.Interface
		err error
	)
	core := p.source.Client.CoreV1()
	if p.source.Kind == KindSecret {
		w, err = core.Secrets(p.source.Namespace).Watch(ctx, opts)
	} else {
		w, err = core.ConfigMaps(p.source.Namespace).Watch(ctx, opts)
	}
	if err != nil {
		cancel()
		return fmt.Errorf("configmap: watch: %w", err)
	}

	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, w)
	return nil
}

func (p *Provider) loop(ctx context.Context, w watch.Interface) {
	defer close(p.done)
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.ResultChan():
			if !ok {
				return
			}
			switch ev.Type {
			case watch.Added, watch.Modified:
				if !p.matches(ev.Object) {
					continue
				}
				p.Replace(p.decode(ev.Object))
				p.OnReload()
			case watch.Deleted:
				if !p.matches(ev.Object) {
					continue
				}
				p.Replace(map[string]string{})
				p.OnReload()
			}
		}
	}
}

func (p *Provider) matches(obj any) bool {
	switch o := obj.(type) {
	case *corev1.ConfigMap:
		return p.source.Kind == KindConfigMap && o.Name == p.source.Name
	case *corev1.Secret:
		return p.source.Kind == KindSecret && o.Name == p.source.Name
	}
	return false
}

func (p *Provider) decode(obj any) map[string]string {
	switch o := obj.(type) {
	case *corev1.ConfigMap:
		return fromConfigMap(o)
	case *corev1.Secret:
		return fromSecret(o)
	}
	return map[string]string{}
}

// Close stops the watch.
func (p *Provider) Close() error {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
	return nil
}

func fromConfigMap(cm *corev1.ConfigMap) map[string]string {
	out := make(map[string]string, len(cm.Data))
	for k, v := range cm.Data {
		out[toKey(k)] = v
	}
	return out
}

func fromSecret(s *corev1.Secret) map[string]string {
	out := make(map[string]string, len(s.Data)+len(s.StringData))
	for k, v := range s.Data {
		out[toKey(k)] = string(v)
	}
	for k, v := range s.StringData {
		out[toKey(k)] = v
	}
	return out
}

func toKey(k string) string {
	return strings.ReplaceAll(k, "__", configuration.KeyDelimiter)
}
