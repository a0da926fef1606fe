package mqtt

import "testing"

func TestPkidAllocator_SequentialAllocation(t *testing.T) {
	a := newPkidAllocator()

	for want := uint16(1); want <= 3; want++ {
		if got := a.allocate(); got != want {
			t.Fatalf("allocate() = %d, want %d", got, want)
		}
	}
}

func TestPkidAllocator_SkipsReservedValues(t *testing.T) {
	a := newPkidAllocator()

	first := a.allocate()  // 1
	_ = a.allocate()       // 2
	third := a.allocate()  // 3

	a.release(first)

	// Released values aren't reused out of order; allocation keeps
	// advancing until it wraps back around to the freed slot.
	fourth := a.allocate()
	if fourth == third {
		t.Fatalf("allocate() returned %d again, want a fresh value", third)
	}
}

func TestPkidAllocator_WrapsAroundAndSkipsZero(t *testing.T) {
	a := newPkidAllocator()
	a.next = 65534

	got := a.allocate()
	if got != 65535 {
		t.Fatalf("allocate() = %d, want 65535", got)
	}

	got = a.allocate()
	if got != 1 {
		t.Fatalf("allocate() after wraparound = %d, want 1 (0 must be skipped)", got)
	}
}

func TestPkidAllocator_WrapsAroundSkippingReserved(t *testing.T) {
	a := newPkidAllocator()
	a.next = 65535
	a.reserved[1] = true

	got := a.allocate()
	if got != 2 {
		t.Fatalf("allocate() after wraparound with 1 reserved = %d, want 2", got)
	}
}

func TestCacheManager_GetPkidIsSequentialPerClient(t *testing.T) {
	c := NewCacheManager(QoSExactlyOnce)

	for want := uint16(1); want <= 3; want++ {
		if got := c.GetPkid("client-1"); got != want {
			t.Fatalf("GetPkid(client-1) = %d, want %d", got, want)
		}
	}

	// A different client gets its own independent allocator.
	if got := c.GetPkid("client-2"); got != 1 {
		t.Fatalf("GetPkid(client-2) = %d, want 1", got)
	}
}

func TestCacheManager_RemovePkidInfoReleasesSlot(t *testing.T) {
	c := NewCacheManager(QoSExactlyOnce)

	pkid := c.GetPkid("client-1")
	c.RemovePkidInfo("client-1", pkid)

	alloc, ok := c.pkidAllocators.Get("client-1")
	if !ok {
		t.Fatal("expected allocator to still be registered for client-1")
	}
	if alloc.reserved[pkid] {
		t.Fatalf("pkid %d still reserved after RemovePkidInfo", pkid)
	}
}

func TestCacheManager_AckPacketRoundTrip(t *testing.T) {
	c := NewCacheManager(QoSExactlyOnce)
	notify := make(chan QosAckPackageData, 1)

	c.AddAckPacket("client-1", 7, QosAckPacketInfo{NotifyCh: notify, CreateTime: now()})

	info, ok := c.GetAckPacket("client-1", 7)
	if !ok {
		t.Fatal("GetAckPacket did not find entry just added")
	}
	if info.NotifyCh != notify {
		t.Fatal("GetAckPacket returned a different channel than was registered")
	}

	notify <- QosAckPackageData{AckType: AckTypePubRec, PacketID: 7}
	got := <-info.NotifyCh
	if got.AckType != AckTypePubRec || got.PacketID != 7 {
		t.Fatalf("ack payload = %+v, want {PubRec 7}", got)
	}

	c.RemoveAckPacket("client-1", 7)
	if _, ok := c.GetAckPacket("client-1", 7); ok {
		t.Fatal("ack packet still present after RemoveAckPacket")
	}
}

func TestCacheManager_AckPacketIsolatedByPkid(t *testing.T) {
	c := NewCacheManager(QoSExactlyOnce)
	c.AddAckPacket("client-1", 1, QosAckPacketInfo{NotifyCh: make(chan QosAckPackageData, 1)})
	c.AddAckPacket("client-1", 2, QosAckPacketInfo{NotifyCh: make(chan QosAckPackageData, 1)})

	c.RemoveAckPacket("client-1", 1)

	if _, ok := c.GetAckPacket("client-1", 1); ok {
		t.Fatal("pkid 1 should have been removed")
	}
	if _, ok := c.GetAckPacket("client-1", 2); !ok {
		t.Fatal("pkid 2 should still be present")
	}
}

func TestCacheManager_RemoveSessionClearsPkidAndAckState(t *testing.T) {
	c := NewCacheManager(QoSExactlyOnce)
	c.AddSession(NewSession("client-1", 42))
	pkid := c.GetPkid("client-1")
	c.AddAckPacket("client-1", pkid, QosAckPacketInfo{NotifyCh: make(chan QosAckPackageData, 1)})

	c.RemoveSession("client-1")

	if _, ok := c.GetSession("client-1"); ok {
		t.Fatal("session should be gone after RemoveSession")
	}
	if _, ok := c.GetConnectID("client-1"); ok {
		t.Fatal("connect_id binding should be gone after RemoveSession")
	}
	if _, ok := c.GetAckPacket("client-1", pkid); ok {
		t.Fatal("ack-wait entry should be swept on RemoveSession")
	}
	if _, ok := c.pkidAllocators.Get("client-1"); ok {
		t.Fatal("pkid allocator should be dropped on RemoveSession")
	}
}

func TestAckKey_RoundTripsOwner(t *testing.T) {
	key := ackKey("client-with-underscores_1", 99)
	if got := ownerOfAckKey(key); got != "client-with-underscores_1" {
		t.Fatalf("ownerOfAckKey(%q) = %q, want client-with-underscores_1", key, got)
	}
}
