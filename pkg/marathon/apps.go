package marathon

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/types"
)

// Labels that configure load balancing for an application. Per-port labels
// carry the service-port index between prefix and suffix, F5_0_BIND_ADDR.
const (
	labelPartition = "F5_PARTITION"

	labelBindAddr  = "BIND_ADDR"
	labelPort      = "PORT"
	labelMode      = "MODE"
	labelBalance   = "BALANCE"
	labelProfile   = "SSL_PROFILE"
	labelIApp      = "IAPP_TEMPLATE"
	labelIAppTable = "IAPP_POOL_MEMBER_TABLE_NAME"
	labelIAppVar   = "IAPP_VARIABLE_"
	labelIAppOpt   = "IAPP_OPTION_"
)

// Label defaults for apps that declare an address but no policy.
const (
	defaultMode = "tcp"
)

// App is one application service port with its parsed labels and healthy
// backends. An application publishing several service ports expands into
// one App per port.
type App struct {
	AppID       string
	ServicePort int
	PortIndex   int

	Partition string
	BindAddr  string
	Mode      string
	Balance   string
	Profile   string

	IApp          string
	IAppTableName string
	IAppVariables map[string]string
	IAppOptions   map[string]any

	HealthCheck *HealthCheck
	Backends    []Backend
}

// HealthCheck is the policy of the health check driving an app port's
// monitor.
type HealthCheck struct {
	Protocol               string
	Path                   string
	PortIndex              int
	IntervalSeconds        int
	TimeoutSeconds         int
	MaxConsecutiveFailures int
}

// Backend is one running task's address for a service port.
type Backend struct {
	Host string
	Port int
}

// Wire shapes of the /v2/apps response.

type appsResponse struct {
	Apps []marathonApp `json:"apps"`
}

type marathonApp struct {
	ID              string            `json:"id"`
	Labels          map[string]string `json:"labels"`
	Ports           []int             `json:"ports"`
	PortDefinitions []portDefinition  `json:"portDefinitions"`
	Container       *appContainer     `json:"container"`
	HealthChecks    []appHealthCheck  `json:"healthChecks"`
	Tasks           []appTask         `json:"tasks"`
}

type portDefinition struct {
	Port int `json:"port"`
}

type appContainer struct {
	Docker *dockerContainer `json:"docker"`
}

type dockerContainer struct {
	PortMappings []portMapping `json:"portMappings"`
}

type portMapping struct {
	ServicePort int `json:"servicePort"`
}

type appHealthCheck struct {
	Protocol               string `json:"protocol"`
	Path                   string `json:"path"`
	PortIndex              int    `json:"portIndex"`
	IntervalSeconds        int    `json:"intervalSeconds"`
	TimeoutSeconds         int    `json:"timeoutSeconds"`
	MaxConsecutiveFailures int    `json:"maxConsecutiveFailures"`
}

type appTask struct {
	ID                 string              `json:"id"`
	Host               string              `json:"host"`
	Ports              []int               `json:"ports"`
	HealthCheckResults []healthCheckResult `json:"healthCheckResults"`
}

type healthCheckResult struct {
	Alive bool `json:"alive"`
}

// servicePorts returns the app's published ports, wherever the deployment
// style put them.
func (a *marathonApp) servicePorts() []int {
	if len(a.Ports) > 0 {
		return a.Ports
	}
	if len(a.PortDefinitions) > 0 {
		ports := make([]int, len(a.PortDefinitions))
		for i, def := range a.PortDefinitions {
			ports[i] = def.Port
		}
		return ports
	}
	if a.Container != nil && a.Container.Docker != nil {
		ports := make([]int, len(a.Container.Docker.PortMappings))
		for i, mapping := range a.Container.Docker.PortMappings {
			ports[i] = mapping.ServicePort
		}
		return ports
	}
	return nil
}

// healthCheckFor returns the first load-balancer-usable health check for a
// service-port index. Command and executor checks have no network endpoint
// to probe, so they never map to a monitor.
func (a *marathonApp) healthCheckFor(index int) *HealthCheck {
	for _, check := range a.HealthChecks {
		protocol := strings.ToUpper(check.Protocol)
		if protocol != "HTTP" && protocol != "TCP" {
			continue
		}
		if check.PortIndex != index {
			continue
		}
		return &HealthCheck{
			Protocol:               check.Protocol,
			Path:                   check.Path,
			PortIndex:              check.PortIndex,
			IntervalSeconds:        check.IntervalSeconds,
			TimeoutSeconds:         check.TimeoutSeconds,
			MaxConsecutiveFailures: check.MaxConsecutiveFailures,
		}
	}
	return nil
}

// healthy reports whether a task should receive traffic. Apps with health
// checks require at least one result and every result alive; apps without
// checks trust any running task.
func (a *marathonApp) healthy(task appTask) bool {
	if len(a.HealthChecks) == 0 {
		return true
	}
	if len(task.HealthCheckResults) == 0 {
		return false
	}
	for _, result := range task.HealthCheckResults {
		if !result.Alive {
			return false
		}
	}
	return true
}

// backendsFor returns the healthy task endpoints for a service-port index.
func (a *marathonApp) backendsFor(index int) []Backend {
	var backends []Backend
	for _, task := range a.Tasks {
		if task.Host == "" || index >= len(task.Ports) {
			continue
		}
		if !a.healthy(task) {
			continue
		}
		backends = append(backends, Backend{Host: task.Host, Port: task.Ports[index]})
	}
	return backends
}

// expandApps flattens the API response into one App per service port with
// labels applied.
func expandApps(raw []marathonApp) []App {
	var apps []App
	for i := range raw {
		ra := &raw[i]
		for index, port := range ra.servicePorts() {
			app := App{
				AppID:         ra.ID,
				ServicePort:   port,
				PortIndex:     index,
				IAppVariables: make(map[string]string),
				IAppOptions:   make(map[string]any),
			}
			app.parseLabels(ra.Labels)
			app.HealthCheck = ra.healthCheckFor(index)
			app.Backends = ra.backendsFor(index)
			apps = append(apps, app)
		}
	}
	return apps
}

// parseLabels applies the application's labels to the entry for one
// service-port index. A PORT label overrides the published service port.
func (app *App) parseLabels(labels map[string]string) {
	app.Partition = labels[labelPartition]

	prefix := fmt.Sprintf("F5_%d_", app.PortIndex)
	app.BindAddr = labels[prefix+labelBindAddr]
	app.Mode = labelOr(labels, prefix+labelMode, defaultMode)
	app.Balance = labelOr(labels, prefix+labelBalance, types.DefaultBalance)
	app.Profile = labels[prefix+labelProfile]
	app.IApp = labels[prefix+labelIApp]
	app.IAppTableName = labels[prefix+labelIAppTable]

	if port, ok := labels[prefix+labelPort]; ok {
		if n, err := strconv.Atoi(port); err == nil {
			app.ServicePort = n
		} else {
			app.ServicePort = 0
		}
	}

	for key, value := range labels {
		if strings.HasPrefix(key, prefix+labelIAppVar) {
			app.IAppVariables[strings.TrimPrefix(key, prefix+labelIAppVar)] = value
		}
		if strings.HasPrefix(key, prefix+labelIAppOpt) {
			app.IAppOptions[strings.TrimPrefix(key, prefix+labelIAppOpt)] = value
		}
	}
}

func labelOr(labels map[string]string, key, fallback string) string {
	if value, ok := labels[key]; ok && value != "" {
		return value
	}
	return fallback
}
