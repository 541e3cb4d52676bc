package types

import (
	"reflect"
	"testing"
)

func TestMonitorTimeout(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		interval int
		timeout  int
		want     int
	}{
		{"default marathon policy", 3, 5, 10, 21},
		{"single failure", 1, 30, 20, 21},
		{"tight policy", 5, 2, 1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonitorTimeout(tt.failures, tt.interval, tt.timeout)
			if got != tt.want {
				t.Errorf("Expected timeout %d, got %d", tt.want, got)
			}
		})
	}
}

func TestHTTPSendString(t *testing.T) {
	// The escapes must be stored literally, not as CR/LF bytes.
	got := HTTPSendString("/health")
	want := "GET /health HTTP/1.0\\r\\n\\r\\n"
	if got != want {
		t.Errorf("Expected send string %q, got %q", want, got)
	}

	got = HTTPSendString("")
	want = "GET / HTTP/1.0\\r\\n\\r\\n"
	if got != want {
		t.Errorf("Expected default send string %q, got %q", want, got)
	}
}

func TestIPProtocol(t *testing.T) {
	tests := []struct {
		mode  string
		want  string
		valid bool
	}{
		{"tcp", "tcp", true},
		{"http", "tcp", true},
		{"udp", "udp", true},
		{"TCP", "tcp", true},
		{"HTTP", "tcp", true},
		{"", "", false},
		{"sctp", "", false},
	}

	for _, tt := range tests {
		got, ok := IPProtocol(tt.mode)
		if ok != tt.valid {
			t.Errorf("Expected IPProtocol(%q) valid=%v, got %v", tt.mode, tt.valid, ok)
		}
		if got != tt.want {
			t.Errorf("Expected IPProtocol(%q) = %q, got %q", tt.mode, tt.want, got)
		}
	}
}

func TestValidBalance(t *testing.T) {
	valid := []string{
		"dynamic-ratio-member",
		"dynamic-ratio-node",
		"fastest-app-response",
		"fastest-node",
		"least-connections-member",
		"least-connections-node",
		"least-sessions",
		"observed-member",
		"observed-node",
		"predictive-member",
		"predictive-node",
		"ratio-least-connections-member",
		"ratio-least-connections-node",
		"ratio-member",
		"ratio-node",
		"ratio-session",
		"round-robin",
		"weighted-least-connections-member",
		"weighted-least-connections-node",
	}
	for _, method := range valid {
		if !ValidBalance(method) {
			t.Errorf("Expected %q to be a valid balance method", method)
		}
	}

	for _, method := range []string{"", "round_robin", "random", "Round-Robin"} {
		if ValidBalance(method) {
			t.Errorf("Expected %q to be rejected", method)
		}
	}

	if DefaultBalance != "round-robin" {
		t.Errorf("Expected default balance round-robin, got %s", DefaultBalance)
	}
}

func TestManagesPartition(t *testing.T) {
	tests := []struct {
		name      string
		managed   []string
		partition string
		want      bool
	}{
		{"exact match", []string{"mesos", "velcro"}, "velcro", true},
		{"no match", []string{"mesos"}, "velcro", false},
		{"wildcard", []string{"*"}, "anything", true},
		{"empty partition never managed", []string{"*"}, "", false},
		{"no managed partitions", nil, "velcro", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ManagesPartition(tt.managed, tt.partition); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMonitorName(t *testing.T) {
	if got := MonitorName("server-app_iapp_80", 0); got != "server-app_iapp_80" {
		t.Errorf("Expected first monitor to reuse the service name, got %s", got)
	}
	if got := MonitorName("server-app_iapp_80", 2); got != "server-app_iapp_80_2" {
		t.Errorf("Expected suffixed monitor name, got %s", got)
	}
}

func TestJoinMonitorRefs(t *testing.T) {
	monitors := []Monitor{
		{Name: "svc", Protocol: ProtocolHTTP},
		{Name: "svc_1", Protocol: ProtocolTCP},
	}
	got := JoinMonitorRefs("velcro", monitors)
	want := "/velcro/svc and /velcro/svc_1"
	if got != want {
		t.Errorf("Expected monitor refs %q, got %q", want, got)
	}

	if got := JoinMonitorRefs("velcro", nil); got != "" {
		t.Errorf("Expected empty refs for no monitors, got %q", got)
	}
}

func TestParseProfileRef(t *testing.T) {
	ref, err := ParseProfileRef("Common/clientssl")
	if err != nil {
		t.Fatalf("Expected profile to parse, got error: %v", err)
	}
	if ref.Partition != "Common" || ref.Name != "clientssl" {
		t.Errorf("Expected Common/clientssl, got %s/%s", ref.Partition, ref.Name)
	}
	if ref.Path() != "/Common/clientssl" {
		t.Errorf("Expected path /Common/clientssl, got %s", ref.Path())
	}

	for _, bad := range []string{"clientssl", "/Common/clientssl", "a/b/c"} {
		if _, err := ParseProfileRef(bad); err == nil {
			t.Errorf("Expected %q to fail to parse", bad)
		}
	}
}

func TestConfigPartitionServices(t *testing.T) {
	cfg := NewConfig()
	cfg.Add(&Service{
		Name:      "b-app_10.0.0.1_80",
		Partition: "velcro",
		Spec:      &VirtualServerSpec{BindAddr: "10.0.0.1", Port: 80},
	})
	cfg.Add(&Service{
		Name:      "a-app_iapp_10000",
		Partition: "velcro",
		Spec:      &IAppSpec{Template: "/Common/f5.http"},
	})
	cfg.Add(&Service{
		Name:      "c-app_10.0.0.2_80",
		Partition: "velcro",
		Spec:      &VirtualServerSpec{BindAddr: "10.0.0.2", Port: 80},
	})
	cfg.Add(&Service{
		Name:      "other_10.0.0.3_80",
		Partition: "mesos",
		Spec:      &VirtualServerSpec{BindAddr: "10.0.0.3", Port: 80},
	})

	iapps, virtuals := cfg.PartitionServices("velcro")
	if len(iapps) != 1 || iapps[0].Name != "a-app_iapp_10000" {
		t.Errorf("Expected one iApp service, got %v", iapps)
	}
	gotNames := []string{}
	for _, svc := range virtuals {
		gotNames = append(gotNames, svc.Name)
	}
	wantNames := []string{"b-app_10.0.0.1_80", "c-app_10.0.0.2_80"}
	if !reflect.DeepEqual(gotNames, wantNames) {
		t.Errorf("Expected virtuals %v, got %v", wantNames, gotNames)
	}

	iapps, virtuals = cfg.PartitionServices("empty")
	if len(iapps) != 0 || len(virtuals) != 0 {
		t.Errorf("Expected no services for unmanaged partition, got %v %v", iapps, virtuals)
	}
}

func TestSortedMemberKeys(t *testing.T) {
	svc := &Service{
		Members: map[string]Member{
			"10.0.0.3:31982": NewMember(),
			"10.0.0.1:31256": NewMember(),
			"10.0.0.2:31001": NewMember(),
		},
	}
	want := []string{"10.0.0.1:31256", "10.0.0.2:31001", "10.0.0.3:31982"}
	if got := svc.SortedMemberKeys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected sorted keys %v, got %v", want, got)
	}
}

func TestNewMember(t *testing.T) {
	m := NewMember()
	if m.State != StateUserUp {
		t.Errorf("Expected state %s, got %s", StateUserUp, m.State)
	}
	if m.Session != SessionUserEnabled {
		t.Errorf("Expected session %s, got %s", SessionUserEnabled, m.Session)
	}
}

func TestMemberKey(t *testing.T) {
	if got := MemberKey("10.0.0.1", 31256); got != "10.0.0.1:31256" {
		t.Errorf("Expected 10.0.0.1:31256, got %s", got)
	}
}

func TestDestination(t *testing.T) {
	spec := &VirtualServerSpec{BindAddr: "10.128.10.240", Port: 5051}
	if got := spec.Destination("velcro"); got != "/velcro/10.128.10.240:5051" {
		t.Errorf("Expected /velcro/10.128.10.240:5051, got %s", got)
	}
}

func TestIAppManaged(t *testing.T) {
	iapp := &Service{Spec: &IAppSpec{}}
	if !iapp.IAppManaged() {
		t.Error("Expected iApp service to report IAppManaged")
	}
	virtual := &Service{Spec: &VirtualServerSpec{}}
	if virtual.IAppManaged() {
		t.Error("Expected virtual service to not report IAppManaged")
	}
}
