// booking-sim publishes a synthetic appointment.booked.v1 or
// appointment.cancelled.v1 event to Kafka so reminderd can be exercised
// without running the booking side.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

func main() {
	var (
		brokers   = flag.String("brokers", getenv("KAFKA_BROKERS", "localhost:9092"), "comma-separated kafka brokers")
		evtType   = flag.String("type", "appointment.booked.v1", "event type: appointment.booked.v1 or appointment.cancelled.v1")
		apptID    = flag.String("appointment-id", "", "appointment id (generated when empty)")
		patient   = flag.String("patient", "Amit", "patient name")
		phone     = flag.String("phone", "+15550100", "patient phone")
		email     = flag.String("email", "", "patient email")
		doctor    = flag.String("doctor", "Dr. X", "doctor name")
		visitType = flag.String("visit-type", "checkup", "visit type")
		startIn   = flag.Duration("start-in", 25*time.Hour, "appointment start offset from now")
	)
	flag.Parse()

	id := strings.TrimSpace(*apptID)
	if id == "" {
		id = "APT_" + strings.ToUpper(uuid.NewString()[:12])
	}

	payload, err := buildPayload(*evtType, id, *patient, *phone, *email, *doctor, *visitType, time.Now().UTC().Add(*startIn))
	if err != nil {
		fatal(err.Error())
	}

	w := &kafka.Writer{
		Addr:     kafka.TCP(strings.Split(*brokers, ",")...),
		Topic:    *evtType,
		Balancer: &kafka.LeastBytes{},
	}
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(id),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(uuid.NewString())},
			{Key: "event_type", Value: []byte(*evtType)},
		},
	})
	if err != nil {
		fatal(err.Error())
	}

	fmt.Printf("published %s appointment_id=%s\n", *evtType, id)
}

func buildPayload(eventType, id, patient, phone, email, doctor, visitType string, startTime time.Time) ([]byte, error) {
	switch eventType {
	case "appointment.booked.v1":
		return json.Marshal(map[string]any{
			"appointment_id": id,
			"patient_name":   patient,
			"phone":          phone,
			"email":          email,
			"doctor_name":    doctor,
			"start_time":     startTime.Format(time.RFC3339),
			"visit_type":     visitType,
		})
	case "appointment.cancelled.v1":
		return json.Marshal(map[string]any{
			"appointment_id": id,
		})
	default:
		return nil, fmt.Errorf("unsupported event type: %s", eventType)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
