package test

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/suite"

	"github.com/relabs-tech/carlot/core/notify"
	"github.com/relabs-tech/carlot/core/store"
)

type EventsOrderTestSuite struct {
	IntegrationTestSuite
}

func TestEventsOrderTestSuite(t *testing.T) {
	ts := &EventsOrderTestSuite{}
	suite.Run(t, ts)
}

func listingPayload(brand store.Brand, model store.Model, price int) map[string]interface{} {
	return map[string]interface{}{
		"title":        brand.Name + " " + model.Name,
		"brand_id":     brand.ID,
		"model_id":     model.ID,
		"year":         2019,
		"price":        price,
		"mileage":      42000,
		"fuel_type":    "diesel",
		"transmission": "automatic",
		"body_type":    "wagon",
	}
}

// readOperations reads n notifications of resource and returns the operations per id
func (s *EventsOrderTestSuite) readOperations(resource string, n int) map[string][]string {
	reader := s.reader()
	defer reader.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	operations := map[string][]string{}
	for i := 0; i < n; {
		m, err := reader.ReadMessage(ctx)
		s.Require().NoError(err, "read %d of %d notifications", i, n)
		var event notify.Event
		s.Require().NoError(json.Unmarshal(m.Value, &event))
		if event.Resource != resource {
			continue
		}
		i++
		s.Equal(string(m.Key), event.ID.String())
		for _, h := range m.Headers {
			if h.Key == "event" {
				s.Equal(event.Topic(), string(h.Value))
			}
		}
		operations[event.ID.String()] = append(operations[event.ID.String()], event.Resource+"."+string(event.Operation))
	}
	return operations
}

// TestListingEventOrdering checks that the events of one listing arrive in the order of
// the requests, although the topic has several partitions
func (s *EventsOrderTestSuite) TestListingEventOrdering() {
	var brand store.Brand
	_, err := s.client.RawPost("/api/admin/brands", map[string]string{"name": "Volvo"}, &brand)
	s.Require().NoError(err)
	var model store.Model
	_, err = s.client.RawPost("/api/admin/models", map[string]interface{}{"brand_id": brand.ID, "name": "V60"}, &model)
	s.Require().NoError(err)

	expected := map[string][]string{}
	var ids []string
	for i := 0; i < 5; i++ {
		var listing store.Listing
		_, err := s.client.RawPost("/api/admin/listings", listingPayload(brand, model, 20000+i), &listing)
		s.Require().NoError(err)
		ids = append(ids, listing.ID.String())
		expected[listing.ID.String()] = []string{"listing.create"}
	}
	for i := 0; i < 40; i++ {
		id := ids[rand.Intn(len(ids))]
		_, err := s.client.RawPut("/api/admin/listings/"+id, listingPayload(brand, model, 19000-i), nil)
		s.Require().NoError(err)
		expected[id] = append(expected[id], "listing.update")
	}
	for _, id := range ids {
		_, err := s.client.RawDelete("/api/admin/listings/" + id)
		s.Require().NoError(err)
		expected[id] = append(expected[id], "listing.delete")
	}

	total := 5 + 40 + 5
	operations := s.readOperations("listing", total)
	s.Equal(expected, operations)
}

// TestInquiryNotification checks that a storefront inquiry is stored and announced
func (s *EventsOrderTestSuite) TestInquiryNotification() {
	var inquiry store.Inquiry
	_, err := s.clientNoAuth.RawPost("/api/inquiries", map[string]interface{}{
		"name":  "Integration",
		"email": "integration@example.com",
		"brand": "Saab",
		"model": "9-3",
		"year":  2008,
	}, &inquiry)
	s.Require().NoError(err)

	stored, err := s.store.GetInquiry(context.Background(), inquiry.ID)
	s.Require().NoError(err)
	s.Equal(store.InquiryNew, stored.Status)

	reader := s.reader()
	defer reader.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	for {
		m, err := reader.ReadMessage(ctx)
		s.Require().NoError(err, "no notification for the inquiry")
		if string(m.Key) != inquiry.ID.String() {
			continue
		}
		var event notify.Event
		s.Require().NoError(json.Unmarshal(m.Value, &event))
		s.Equal("inquiry.create", event.Topic())
		s.True(strings.Contains(string(event.Payload), "integration@example.com"))
		return
	}
}
