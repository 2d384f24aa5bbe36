package wgcookie

import (
	"net/netip"
	"testing"

	"golang.zx2c4.com/wireguard-cookie/cookie"
)

func testIdentity() cookie.Identity {
	var id cookie.Identity
	for i := range id {
		id[i] = byte(i + 7)
	}
	return id
}

func newMessage(n int) []byte {
	msg := make([]byte, n)
	for i := range msg {
		msg[i] = byte(i)
	}
	return msg
}

// spec.md §8 scenario 1, end to end through Defense.
func TestValidateMACsAllowedWhenNotBusy(t *testing.T) {
	id := testIdentity()
	d, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Deinit()
	d.SetIdentity(&id)
	m := cookie.NewMaker(id)

	msg := newMessage(64)
	if err := m.AddMacs(msg); err != nil {
		t.Fatalf("AddMacs: %v", err)
	}

	addr := netip.MustParseAddrPort("127.0.0.1:51820")
	verdict, err := d.ValidateMACs(msg, false, addr)
	if err != nil {
		t.Fatalf("ValidateMACs: %v", err)
	}
	if verdict != Allowed {
		t.Fatalf("expected Allowed, got %v", verdict)
	}
}

// spec.md §8 scenario 2, end to end through Defense.
func TestValidateMACsCookieChallengeThenAllowed(t *testing.T) {
	id := testIdentity()
	d, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Deinit()
	d.SetIdentity(&id)
	m := cookie.NewMaker(id)
	addr := netip.MustParseAddrPort("203.0.113.9:4500")

	msg := newMessage(64)
	if err := m.AddMacs(msg); err != nil {
		t.Fatalf("AddMacs: %v", err)
	}

	verdict, err := d.ValidateMACs(msg, true, addr)
	if err != nil {
		t.Fatalf("ValidateMACs: %v", err)
	}
	if verdict != CookieRequired {
		t.Fatalf("expected CookieRequired, got %v", verdict)
	}

	var mac1Val [cookie.MACSize]byte
	copy(mac1Val[:], msg[len(msg)-2*cookie.MACSize:len(msg)-cookie.MACSize])

	nonce, enc, err := d.CreatePayload(mac1Val, addr)
	if err != nil {
		t.Fatalf("CreatePayload: %v", err)
	}
	if err := m.ConsumePayload(nonce, enc); err != nil {
		t.Fatalf("ConsumePayload: %v", err)
	}

	msg2 := newMessage(64)
	if err := m.AddMacs(msg2); err != nil {
		t.Fatalf("AddMacs: %v", err)
	}

	verdict, err = d.ValidateMACs(msg2, true, addr)
	if err != nil {
		t.Fatalf("ValidateMACs: %v", err)
	}
	if verdict != Allowed {
		t.Fatalf("expected Allowed once the maker holds a cookie, got %v", verdict)
	}
}

func TestValidateMACsInvalidOnTamperedMAC1(t *testing.T) {
	id := testIdentity()
	d, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Deinit()
	d.SetIdentity(&id)
	m := cookie.NewMaker(id)

	msg := newMessage(64)
	if err := m.AddMacs(msg); err != nil {
		t.Fatalf("AddMacs: %v", err)
	}
	msg[0] ^= 0xff

	addr := netip.MustParseAddrPort("198.51.100.2:1")
	verdict, err := d.ValidateMACs(msg, false, addr)
	if err != nil {
		t.Fatalf("ValidateMACs: %v", err)
	}
	if verdict != Invalid {
		t.Fatalf("expected Invalid, got %v", verdict)
	}
}

func TestValidateMACsUnsupportedFamilyUnderLoad(t *testing.T) {
	id := testIdentity()
	d, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Deinit()
	d.SetIdentity(&id)
	m := cookie.NewMaker(id)

	msg := newMessage(64)
	if err := m.AddMacs(msg); err != nil {
		t.Fatalf("AddMacs: %v", err)
	}

	var zero netip.AddrPort // neither IPv4 nor IPv6
	verdict, err := d.ValidateMACs(msg, true, zero)
	if err != nil {
		t.Fatalf("ValidateMACs: %v", err)
	}
	if verdict != UnsupportedFamily {
		t.Fatalf("expected UnsupportedFamily, got %v", verdict)
	}
}

func TestLoadTrackerWindow(t *testing.T) {
	lt := NewLoadTracker()
	if lt.IsUnderLoad() {
		t.Fatalf("expected not under load before any report")
	}
	lt.ReportLoad()
	if !lt.IsUnderLoad() {
		t.Fatalf("expected under load immediately after a report")
	}
}

func TestVerdictString(t *testing.T) {
	cases := map[Verdict]string{
		Allowed:           "allowed",
		Invalid:           "invalid",
		CookieRequired:    "cookie-required",
		Refused:           "refused",
		UnsupportedFamily: "unsupported-family",
	}
	for v, want := range cases {
		if got := v.String(); got != want {
			t.Fatalf("Verdict(%d).String() = %q, want %q", v, got, want)
		}
	}
}
