package configmap

import (
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/zoobzio/protected/configuration"
)

func TestSource_ConfigMap(t *testing.T) {
	client := fake.NewSimpleClientset(&corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "app", Namespace: "prod"},
		Data: map[string]string{
			"Db__Host":     "db",
			"Db__Password": "Protected:{abc}",
		},
	})

	p, err := (&Source{Client: client, Namespace: "prod", Name: "app"}).Build(configuration.NewBuilder())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if err := p.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if got, _ := p.TryGet("Db:Host"); got != "db" {
		t.Errorf("TryGet(Db:Host) = %q, want %q", got, "db")
	}
	if got, _ := p.TryGet("Db:Password"); got != "Protected:{abc}" {
		t.Errorf("TryGet(Db:Password) = %q", got)
	}
}

func TestSource_Secret(t *testing.T) {
	client := fake.NewSimpleClientset(&corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: "creds", Namespace: "prod"},
		Data:       map[string][]byte{"ApiKey": []byte("Protected:{k}")},
	})

	p, err := (&Source{Client: client, Namespace: "prod", Name: "creds", Kind: KindSecret}).Build(configuration.NewBuilder())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if err := p.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, _ := p.TryGet("apikey"); got != "Protected:{k}" {
		t.Errorf("TryGet(apikey) = %q", got)
	}
}

func TestSource_Missing(t *testing.T) {
	client := fake.NewSimpleClientset()

	p, _ := (&Source{Client: client, Namespace: "prod", Name: "absent"}).Build(configuration.NewBuilder())
	if err := p.Load(); err == nil {
		t.Error("expected error for missing ConfigMap")
	}

	p, _ = (&Source{Client: client, Namespace: "prod", Name: "absent", Optional: true}).Build(configuration.NewBuilder())
	if err := p.Load(); err != nil {
		t.Errorf("Load() error for optional ConfigMap: %v", err)
	}
}

func TestSource_Watch(t *testing.T) {
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "app", Namespace: "prod"},
		Data:       map[string]string{"Key": "v1"},
	}
	client := fake.NewSimpleClientset(cm)

	built, err := (&Source{Client: client, Namespace: "prod", Name: "app", Watch: true}).Build(configuration.NewBuilder())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	p := built.(*Provider)
	defer p.Close()
	if err := p.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	reloaded := make(chan struct{}, 1)
	stop := configuration.OnChange(p.GetReloadToken, func() {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})
	defer stop()

	updated := cm.DeepCopy()
	updated.Data["Key"] = "v2"
	if _, err := client.CoreV1().ConfigMaps("prod").Update(t.Context(), updated, metav1.UpdateOptions{}); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	if got, _ := p.TryGet("Key"); got != "v2" {
		t.Errorf("TryGet(Key) = %q, want %q", got, "v2")
	}
}

func TestSource_Validation(t *testing.T) {
	client := fake.NewSimpleClientset()
	cases := []*Source{
		{Name: "app"},
		{Client: client},
		{Client: client, Name: "app", Kind: "Pod"},
	}
	for _, s := range cases {
		if _, err := s.Build(configuration.NewBuilder()); err == nil {
			t.Errorf("Build(%+v) expected error", s)
		}
	}
}
