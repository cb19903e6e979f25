package control

import "time"

// ControlConfig is the configuration shared by the API daemon and the
// worker loops.
//
// to get a `ControlConfig` instance, use `ControlConfigMarshall.TrySeal()` .
type ControlConfig struct {
	port      int32
	database  string
	gateway   string
	events    *EventsConfig
	providers *ProvidersConfig
	worker    *WorkerConfig
}

func (c *ControlConfig) Port() int32 {
	return c.port
}

// Connection string for the control-plane database.
func (c *ControlConfig) Database() string {
	return c.database
}

// Connection string for the gateway's endpoint database.
// Empty disables gateway sync.
func (c *ControlConfig) Gateway() string {
	return c.gateway
}

func (c *ControlConfig) Events() *EventsConfig {
	return c.events
}

func (c *ControlConfig) Providers() *ProvidersConfig {
	return c.providers
}

func (c *ControlConfig) Worker() *WorkerConfig {
	return c.worker
}

// Configuration of the event bus.
type EventsConfig struct {
	redis  string
	stream string
}

// Redis address ("host:port").
func (e *EventsConfig) Redis() string {
	return e.redis
}

// Name of the stream carrying deployment events.
func (e *EventsConfig) Stream() string {
	return e.stream
}

type ProvidersConfig struct {
	ec2   *EC2Config
	k8s   *K8sConfig
	depin *DePINConfig
}

// nil when the ec2 provider is not configured.
func (p *ProvidersConfig) EC2() *EC2Config {
	return p.ec2
}

func (p *ProvidersConfig) K8s() *K8sConfig {
	return p.k8s
}

func (p *ProvidersConfig) DePIN() *DePINConfig {
	return p.depin
}

type EC2Config struct {
	imageId          string
	subnetId         string
	securityGroupIds []string
	instanceTypes    map[string]string
	servePort        int32
}

func (e *EC2Config) ImageId() string {
	return e.imageId
}

func (e *EC2Config) SubnetId() string {
	return e.subnetId
}

func (e *EC2Config) SecurityGroupIds() []string {
	return e.securityGroupIds
}

// GPU type to EC2 instance type.
func (e *EC2Config) InstanceTypes() map[string]string {
	return e.instanceTypes
}

func (e *EC2Config) ServePort() int32 {
	return e.servePort
}

type K8sConfig struct {
	namespace string
	image     string
	servePort int32
}

func (k *K8sConfig) Namespace() string {
	return k.namespace
}

// Which image should be used as the inference runtime.
func (k *K8sConfig) Image() string {
	return k.image
}

func (k *K8sConfig) ServePort() int32 {
	return k.servePort
}

type DePINConfig struct {
	baseUrl string
}

// Base URL of the DePIN sidecar.
func (d *DePINConfig) BaseUrl() string {
	return d.baseUrl
}

type WorkerConfig struct {
	maxAttempts         int
	retryBackoff        time.Duration
	provisionTimeout    time.Duration
	deprovisionAttempts int
	deprovisionBackoff  time.Duration
	probePath           string
	probeTimeout        time.Duration
}

// How many provisioning attempts a deployment gets.
func (w *WorkerConfig) MaxAttempts() int {
	return w.maxAttempts
}

// Wait before a failed deployment is retried, doubling per attempt.
func (w *WorkerConfig) RetryBackoff() time.Duration {
	return w.retryBackoff
}

func (w *WorkerConfig) ProvisionTimeout() time.Duration {
	return w.provisionTimeout
}

func (w *WorkerConfig) DeprovisionAttempts() int {
	return w.deprovisionAttempts
}

func (w *WorkerConfig) DeprovisionBackoff() time.Duration {
	return w.deprovisionBackoff
}

func (w *WorkerConfig) ProbePath() string {
	return w.probePath
}

func (w *WorkerConfig) ProbeTimeout() time.Duration {
	return w.probeTimeout
}
