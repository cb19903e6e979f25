package control

import (
	"time"

	"gopkg.in/yaml.v3"
)

type Marshalled[S any] interface {
	trySeal(string) S
}

// Duration reads "10m"-style values.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// seal marshalled object.
//
// this function CAN CAUSE PANIC if misconfiguration is found.
//
// All types named `pkg/configs/control.XxxMarshall` are `Marshalled[*Xxx]` .
func TrySeal[S any](conf Marshalled[S]) S {
	return conf.trySeal("(root)")
}

type ControlConfigMarshall struct {
	Port      int32                    `yaml:"port"`
	Database  string                   `yaml:"database"`
	Gateway   string                   `yaml:"gateway,omitempty"`
	Events    *EventsConfigMarshall    `yaml:"events"`
	Providers *ProvidersConfigMarshall `yaml:"providers"`
	Worker    *WorkerConfigMarshall    `yaml:"worker,omitempty"`
}

var _ Marshalled[*ControlConfig] = &ControlConfigMarshall{}

func (c *ControlConfigMarshall) trySeal(path string) *ControlConfig {
	worker := c.Worker
	if worker == nil {
		worker = &WorkerConfigMarshall{}
	}
	return &ControlConfig{
		port:      required(c.Port, path+".port"),
		database:  required(c.Database, path+".database"),
		gateway:   c.Gateway,
		events:    nonnil(c.Events, path+".events").trySeal(path + ".events"),
		providers: nonnil(c.Providers, path+".providers").trySeal(path + ".providers"),
		worker:    worker.trySeal(path + ".worker"),
	}
}

type EventsConfigMarshall struct {
	Redis  string `yaml:"redis"`
	Stream string `yaml:"stream,omitempty"`
}

func (e *EventsConfigMarshall) trySeal(path string) *EventsConfig {
	stream := e.Stream
	if stream == "" {
		stream = "deployment-events"
	}
	return &EventsConfig{
		redis:  required(e.Redis, path+".redis"),
		stream: stream,
	}
}

type ProvidersConfigMarshall struct {
	EC2   *EC2ConfigMarshall   `yaml:"ec2,omitempty"`
	K8s   *K8sConfigMarshall   `yaml:"k8s,omitempty"`
	DePIN *DePINConfigMarshall `yaml:"depin,omitempty"`
}

func (p *ProvidersConfigMarshall) trySeal(path string) *ProvidersConfig {
	sealed := &ProvidersConfig{}
	if p.EC2 != nil {
		sealed.ec2 = p.EC2.trySeal(path + ".ec2")
	}
	if p.K8s != nil {
		sealed.k8s = p.K8s.trySeal(path + ".k8s")
	}
	if p.DePIN != nil {
		sealed.depin = p.DePIN.trySeal(path + ".depin")
	}
	if sealed.ec2 == nil && sealed.k8s == nil && sealed.depin == nil {
		panic(path + " needs at least one provider")
	}
	return sealed
}

type EC2ConfigMarshall struct {
	ImageId          string            `yaml:"imageId"`
	SubnetId         string            `yaml:"subnetId,omitempty"`
	SecurityGroupIds []string          `yaml:"securityGroupIds,omitempty"`
	InstanceTypes    map[string]string `yaml:"instanceTypes"`
	ServePort        int32             `yaml:"servePort,omitempty"`
}

func (e *EC2ConfigMarshall) trySeal(path string) *EC2Config {
	servePort := e.ServePort
	if servePort == 0 {
		servePort = 8080
	}
	if len(e.InstanceTypes) == 0 {
		panic(path + ".instanceTypes is required")
	}
	return &EC2Config{
		imageId:          required(e.ImageId, path+".imageId"),
		subnetId:         e.SubnetId,
		securityGroupIds: e.SecurityGroupIds,
		instanceTypes:    e.InstanceTypes,
		servePort:        servePort,
	}
}

type K8sConfigMarshall struct {
	Namespace string `yaml:"namespace"`
	Image     string `yaml:"image"`
	ServePort int32  `yaml:"servePort,omitempty"`
}

func (k *K8sConfigMarshall) trySeal(path string) *K8sConfig {
	servePort := k.ServePort
	if servePort == 0 {
		servePort = 8080
	}
	return &K8sConfig{
		namespace: required(k.Namespace, path+".namespace"),
		image:     required(k.Image, path+".image"),
		servePort: servePort,
	}
}

type DePINConfigMarshall struct {
	BaseUrl string `yaml:"baseUrl"`
}

func (d *DePINConfigMarshall) trySeal(path string) *DePINConfig {
	return &DePINConfig{
		baseUrl: required(d.BaseUrl, path+".baseUrl"),
	}
}

type WorkerConfigMarshall struct {
	MaxAttempts         int      `yaml:"maxAttempts,omitempty"`
	RetryBackoff        Duration `yaml:"retryBackoff,omitempty"`
	ProvisionTimeout    Duration `yaml:"provisionTimeout,omitempty"`
	DeprovisionAttempts int      `yaml:"deprovisionAttempts,omitempty"`
	DeprovisionBackoff  Duration `yaml:"deprovisionBackoff,omitempty"`
	ProbePath           string   `yaml:"probePath,omitempty"`
	ProbeTimeout        Duration `yaml:"probeTimeout,omitempty"`
}

func (w *WorkerConfigMarshall) trySeal(path string) *WorkerConfig {
	sealed := &WorkerConfig{
		maxAttempts:         w.MaxAttempts,
		retryBackoff:        time.Duration(w.RetryBackoff),
		provisionTimeout:    time.Duration(w.ProvisionTimeout),
		deprovisionAttempts: w.DeprovisionAttempts,
		deprovisionBackoff:  time.Duration(w.DeprovisionBackoff),
		probePath:           w.ProbePath,
		probeTimeout:        time.Duration(w.ProbeTimeout),
	}
	if sealed.maxAttempts <= 0 {
		sealed.maxAttempts = 3
	}
	if sealed.retryBackoff <= 0 {
		sealed.retryBackoff = 2 * time.Second
	}
	if sealed.provisionTimeout <= 0 {
		sealed.provisionTimeout = 10 * time.Minute
	}
	if sealed.deprovisionAttempts <= 0 {
		sealed.deprovisionAttempts = 5
	}
	if sealed.deprovisionBackoff <= 0 {
		sealed.deprovisionBackoff = 2 * time.Second
	}
	if sealed.probePath == "" {
		sealed.probePath = "/health"
	}
	if sealed.probeTimeout <= 0 {
		sealed.probeTimeout = 5 * time.Second
	}
	return sealed
}

func nonnil[T any](v *T, path string) *T {
	if v == nil {
		panic(path + " is required")
	}
	return v
}

func required[T comparable](v T, path string) T {
	if v == *new(T) {
		panic(path + " is required")
	}
	return v
}
