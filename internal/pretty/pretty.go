// Package pretty renders DHCP packets as boxed text reports for the CLI.
// Rendering has no side effects on protocol state.
package pretty

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dhcpdig/dhcpdig/internal/dhcp"
	"github.com/dhcpdig/dhcpdig/internal/macvendor"
	"github.com/dhcpdig/dhcpdig/pkg/dhcpv4"
)

const colLen = 60

const labelWidth = 18

// FormatPacket renders a packet as a boxed report: headline, transaction
// info, client info with the MAC vendor, the four addresses, and the options
// as indented JSON. vendors may be nil.
func FormatPacket(p *dhcp.Packet, vendors *macvendor.DB) string {
	msgType := "UNKNOWN MSG TYPE"
	if opt, ok := p.Options.ByCode(dhcpv4.OptionDHCPMessageType); ok && len(opt.Data) == 1 {
		msgType = dhcpv4.MessageType(opt.Data[0]).String()
	}
	cast := "UNICAST"
	if p.IsBroadcast() {
		cast = "BROADCAST"
	}

	mac := dhcpv4.FormatMAC(p.CHAddr)
	vendor := macvendor.UnknownVendor
	if vendors != nil {
		vendor = vendors.Lookup(mac)
	}
	clientInfo := fmt.Sprintf("%s - %s (%s)", p.HType, mac, vendor)
	if len(clientInfo) > colLen-labelWidth {
		clientInfo = clientInfo[:colLen-labelWidth]
	}

	lines := []string{
		fmt.Sprintf("%s / %s / %s", p.Op, msgType, cast),
		fmt.Sprintf("%d bytes / TX ID 0X%X / %d seconds elapsed", len(p.Encode()), p.XID, p.Secs),
		label("Client info:") + clientInfo,
		label("Client address:") + p.CIAddr.String(),
		label("Your address:") + p.YIAddr.String(),
		label("Next server:") + p.SIAddr.String(),
		label("Relay:") + p.GIAddr.String(),
	}

	var b strings.Builder
	divider := ";-" + strings.Repeat("-", colLen) + ";\n"
	b.WriteString(divider)
	for _, line := range lines {
		b.WriteString(boxLine(line))
	}
	b.WriteString(divider)
	b.WriteString(boxLine(pad("OPTIONS:", colLen)))
	for _, line := range strings.Split(OptionsJSON(p.Options), "\n") {
		b.WriteString(boxLine(line))
	}
	b.WriteString(divider)
	return b.String()
}

// OptionsJSON renders an option list's semantic values as indented JSON in
// list order.
func OptionsJSON(opts *dhcp.OptionList) string {
	entries := make([]map[string]any, 0, opts.Len())
	for i := 0; i < opts.Len(); i++ {
		opt, _ := opts.At(i)
		entries = append(entries, opt.Value())
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Sprintf("[unrenderable options: %v]", err)
	}
	return string(data)
}

func boxLine(line string) string {
	return "; " + pad(line, colLen) + ";\n"
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func label(s string) string {
	return pad(s, labelWidth)
}
