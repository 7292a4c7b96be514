package wire

import "fmt"

// GreetingBlock is the fixed-width title(64)+text(512) block used by every
// News 0x2008 response variant (spec.md §4.3).
type GreetingBlock struct {
	Title string
	Text  string
}

func (m *GreetingBlock) Stream(s *EasyStream) error {
	return RunErrorFunctions([]func() error{
		func() error { return s.StreamFixedString(&m.Title, 64) },
		func() error { return s.StreamFixedString(&m.Text, 512) },
	})
}

func (m GreetingBlock) String() string {
	return fmt.Sprintf("GreetingBlock(title=%q)", m.Title)
}

// NewWelcome builds the greeting block sent on a successful News 0x2008.
func NewWelcome(version string) *GreetingBlock {
	return &GreetingBlock{
		Title: fmt.Sprintf("Welcome v%s", version),
		Text:  "",
	}
}

// NewFull builds the greeting block sent when the server is at capacity.
func NewFull() *GreetingBlock {
	return &GreetingBlock{Title: "Server full", Text: "Please try again later."}
}

// NewBanned builds the greeting block sent to a banned peer.
func NewBanned() *GreetingBlock {
	return &GreetingBlock{Title: "Banned", Text: "This address is not permitted to connect."}
}

// ServiceEndpoint is one (IP, TCP port, role tag) tuple in a News 0x2005
// server-list response.
type ServiceEndpoint struct {
	IP   [4]byte
	Port uint16
	Tag  ServiceTag
}

func (m *ServiceEndpoint) Stream(s *EasyStream) error {
	ip := m.IP[:]
	tag := uint16(m.Tag)
	return RunErrorFunctions([]func() error{
		func() error { return s.StreamBytes(&ip, 4) },
		func() error { return s.StreamUint16(&m.Port) },
		func() error { return s.StreamUint16(&tag) },
	})
}

// ServerList is the ordered tuple of service endpoints a client should use
// for subsequent connections. dialect-A orders (Main, NetworkMenu, Login);
// dialect-B orders (Login, Main, NetworkMenu) (spec.md §4.3, §6).
type ServerList struct {
	Services []ServiceEndpoint
}

func (m *ServerList) Stream(s *EasyStream) error {
	count := uint16(len(m.Services))
	if err := s.StreamUint16(&count); err != nil {
		return err
	}
	if s.IsReading() {
		m.Services = make([]ServiceEndpoint, count)
	}
	for i := range m.Services {
		if err := m.Services[i].Stream(s); err != nil {
			return err
		}
	}
	return nil
}

// ServerListForDialectA orders services (Main, NetworkMenu, Login).
func ServerListForDialectA(mainIP, menuIP, loginIP [4]byte, mainPort, menuPort, loginPort uint16) *ServerList {
	return &ServerList{Services: []ServiceEndpoint{
		{IP: mainIP, Port: mainPort, Tag: ServiceMain},
		{IP: menuIP, Port: menuPort, Tag: ServiceNetworkMenu},
		{IP: loginIP, Port: loginPort, Tag: ServiceLogin},
	}}
}

// ServerListForDialectB orders services (Login, Main, NetworkMenu).
func ServerListForDialectB(loginIP, mainIP, menuIP [4]byte, loginPort, mainPort, menuPort uint16) *ServerList {
	return &ServerList{Services: []ServiceEndpoint{
		{IP: loginIP, Port: loginPort, Tag: ServiceLogin},
		{IP: mainIP, Port: mainPort, Tag: ServiceMain},
		{IP: menuIP, Port: menuPort, Tag: ServiceNetworkMenu},
	}}
}

// TimeResponse carries the current unix-epoch seconds (spec.md §4.3, 0x2006).
type TimeResponse struct {
	Epoch uint32
}

func (m *TimeResponse) Stream(s *EasyStream) error {
	return s.StreamUint32(&m.Epoch)
}
