package feed

import (
	"testing"
	"time"
)

func TestPublishReachesSubscriber(t *testing.T) {
	ch, cancel := Subscribe("company-a")
	defer cancel()

	Publish("company-a")

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("subscriber did not receive notification")
	}
}

func TestPublishCoalesces(t *testing.T) {
	ch, cancel := Subscribe("company-b")
	defer cancel()

	Publish("company-b")
	Publish("company-b")
	Publish("company-b")

	<-ch
	select {
	case <-ch:
		t.Fatalf("burst of publishes should coalesce into one pending notification")
	default:
	}
}

func TestPublishScopedByCompany(t *testing.T) {
	chA, cancelA := Subscribe("company-c")
	defer cancelA()
	chB, cancelB := Subscribe("company-d")
	defer cancelB()

	Publish("company-c")

	select {
	case <-chA:
	case <-time.After(time.Second):
		t.Fatalf("company-c subscriber did not receive notification")
	}
	select {
	case <-chB:
		t.Fatalf("company-d subscriber should not have been notified")
	default:
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	ch, cancel := Subscribe("company-e")
	cancel()

	Publish("company-e")

	select {
	case <-ch:
		t.Fatalf("cancelled subscriber should not receive notifications")
	default:
	}
}
