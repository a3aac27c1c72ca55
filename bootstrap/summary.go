package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/kbukum/storefront/component"
)

// StepStatus holds the outcome of one startup step.
type StepStatus struct {
	Name    string
	Status  string
	Healthy bool
}

// InfrastructureInfo describes a started infrastructure component.
type InfrastructureInfo struct {
	Name    string
	Type    string // e.g. "database", "server", "kafka"
	Details string
}

// RouteInfo represents a registered HTTP route.
type RouteInfo struct {
	Method  string
	Path    string
	Handler string
}

// ConsumerInfo represents a message consumer.
type ConsumerInfo struct {
	Name  string
	Group string
	Topic string
}

// Summary tracks and displays the startup of one service instance.
type Summary struct {
	serviceName     string
	version         string
	instanceID      string
	startupDuration time.Duration
	steps           []StepStatus
	infrastructure  []InfrastructureInfo
	routes          []RouteInfo
	consumers       []ConsumerInfo
	out             io.Writer
}

// NewSummary creates a summary for a new instance of serviceName.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{
		serviceName: serviceName,
		version:     version,
		instanceID:  uuid.NewString(),
		out:         os.Stdout,
	}
}

// InstanceID returns the id generated for this process.
func (s *Summary) InstanceID() string { return s.instanceID }

// SetOutput sets where Display writes.
func (s *Summary) SetOutput(w io.Writer) { s.out = w }

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackStep records a step's startup outcome.
func (s *Summary) TrackStep(name, status string, healthy bool) {
	s.steps = append(s.steps, StepStatus{Name: name, Status: status, Healthy: healthy})
}

// TrackInfrastructure records an infrastructure component.
func (s *Summary) TrackInfrastructure(name, componentType, details string) {
	s.infrastructure = append(s.infrastructure, InfrastructureInfo{
		Name:    name,
		Type:    componentType,
		Details: details,
	})
}

// TrackRoute records an HTTP route.
func (s *Summary) TrackRoute(method, path, handler string) {
	s.routes = append(s.routes, RouteInfo{Method: method, Path: path, Handler: handler})
}

// TrackConsumer records a message consumer.
func (s *Summary) TrackConsumer(name, group, topic string) {
	s.consumers = append(s.consumers, ConsumerInfo{Name: name, Group: group, Topic: topic})
}

// CollectFromRegistry records infrastructure and routes of every started
// component.
func (s *Summary) CollectFromRegistry(registry *component.Registry) {
	for _, c := range registry.All() {
		if !registry.Started(c.Name()) {
			continue
		}
		inner := unwrap(c)
		if d, ok := inner.(component.Describable); ok {
			desc := d.Describe()
			s.TrackInfrastructure(desc.Name, desc.Type, desc.Details)
		}
		if rp, ok := inner.(component.RouteProvider); ok {
			for _, r := range rp.Routes() {
				s.TrackRoute(r.Method, r.Path, r.Handler)
			}
		}
	}
}

// Display prints the summary including live health from the registry.
func (s *Summary) Display(registry *component.Registry) {
	w := s.out
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	fmt.Fprintln(w)
	bold.Fprintf(w, "🚀 %s %s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())
	faint.Fprintf(w, "   instance %s\n\n", s.instanceID)

	if len(s.infrastructure) > 0 {
		fmt.Fprintln(w, "📊 Infrastructure")
		for i, inf := range s.infrastructure {
			fmt.Fprintf(w, "   %s %s: %s\n", treePrefix(i, len(s.infrastructure)), inf.Name, inf.Details)
		}
		fmt.Fprintln(w)
	}

	if len(s.steps) > 0 {
		fmt.Fprintln(w, "📦 Steps")
		healthy := 0
		for i, st := range s.steps {
			fmt.Fprintf(w, "   %s %s %s (%s)\n", treePrefix(i, len(s.steps)), statusIcon(st.Status, st.Healthy), st.Name, st.Status)
			if st.Healthy {
				healthy++
			}
		}
		fmt.Fprintln(w)
		if healthy == len(s.steps) {
			color.New(color.FgGreen).Fprintf(w, "✅ All steps up (%d/%d)\n", healthy, len(s.steps))
		} else {
			color.New(color.FgYellow).Fprintf(w, "⚠️  Some steps were skipped (%d/%d up)\n", healthy, len(s.steps))
		}
	} else {
		fmt.Fprintln(w, "   └── No steps registered")
	}

	if len(s.routes) > 0 {
		fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(s.routes))
		for i, r := range s.routes {
			fmt.Fprintf(w, "   %s %s %s → %s\n", treePrefix(i, len(s.routes)), methodColor(r.Method), r.Path, r.Handler)
		}
	}

	if len(s.consumers) > 0 {
		fmt.Fprintln(w, "\n📨 Consumers")
		for i, c := range s.consumers {
			fmt.Fprintf(w, "   %s %s (group: %s, topic: %s)\n", treePrefix(i, len(s.consumers)), c.Name, c.Group, c.Topic)
		}
	}

	if registry != nil {
		results := registry.HealthAll(context.Background())
		if len(results) > 0 {
			fmt.Fprintln(w, "\n🏥 Health Check")
			for i, h := range results {
				msg := ""
				if h.Message != "" {
					msg = " - " + h.Message
				}
				fmt.Fprintf(w, "   %s %s %s: %s%s\n", treePrefix(i, len(results)), healthStatusIcon(h.Status), h.Name, strings.ToLower(string(h.Status)), msg)
			}
		}
	}

	fmt.Fprintln(w)
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func statusIcon(status string, healthy bool) string {
	if !healthy {
		return "❌"
	}
	switch status {
	case "active", "connected", "healthy", "started":
		return "✅"
	case "skipped", "disabled":
		return "⏸️"
	case "error", "failed":
		return "❌"
	default:
		return "⚠️"
	}
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}

// methodColor pads and colors an HTTP method for the route listing.
func methodColor(method string) string {
	padded := fmt.Sprintf("%-7s", method)
	switch method {
	case "GET":
		return color.GreenString(padded)
	case "POST":
		return color.YellowString(padded)
	case "PUT", "PATCH":
		return color.BlueString(padded)
	case "DELETE":
		return color.RedString(padded)
	default:
		return padded
	}
}
