package session

import (
	"time"

	"go.uber.org/zap"

	"github.com/juce/fiveserver/internal/wire"
)

// RoleNews serves spec.md §4.3: greeting (banned-list + capacity check),
// server list, and current time.
func RoleNews() map[wire.Opcode]Handler {
	return map[wire.Opcode]Handler{
		wire.OpGreeting:   handleGreeting,
		wire.OpServerList: handleServerList,
		wire.OpTime:       handleTime,
	}
}

func handleGreeting(s *Session, _ []byte) error {
	var greeting *wire.GreetingBlock

	switch {
	case s.Server.BanList.Contains(s.RemoteIP()):
		s.logger.Info("rejected banned peer", zap.String("ip", s.RemoteIP().String()))
		greeting = wire.NewBanned()
	case int32(s.Server.OnlineCount()) >= s.Server.MaxUsers():
		greeting = wire.NewFull()
	default:
		greeting = wire.NewWelcome(s.Server.Config.Version)
	}

	body, err := wire.Marshal(greeting)
	if err != nil {
		return err
	}
	return s.SendFrame(uint16(wire.OpGreeting+1), body)
}

func handleServerList(s *Session, _ []byte) error {
	// s.ServiceIPs/ServicePorts are fixed at [login, main, networkMenu] by
	// listener wiring; each dialect reorders them per spec.md §4.3/§6.
	ips, ports := s.ServiceIPs, s.ServicePorts

	var list *wire.ServerList
	if s.Dialect == DialectA {
		list = wire.ServerListForDialectA(ips[1], ips[2], ips[0], ports[1], ports[2], ports[0])
	} else {
		list = wire.ServerListForDialectB(ips[0], ips[1], ips[2], ports[0], ports[1], ports[2])
	}

	body, err := wire.Marshal(list)
	if err != nil {
		return err
	}
	return s.SendFrame(uint16(wire.OpServerList+1), body)
}

func handleTime(s *Session, _ []byte) error {
	resp := &wire.TimeResponse{Epoch: uint32(time.Now().Unix())}
	body, err := wire.Marshal(resp)
	if err != nil {
		return err
	}
	return s.SendFrame(uint16(wire.OpTime+1), body)
}
