// Package kafka bootstraps the job-queue topics and probes broker readiness
package kafka

import (
	"context"
	"errors"
	"log"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// InitKafkaTopics creates the given topics, retrying until every one of them
// exists. Already-existing topics count as success.
func InitKafkaTopics(ctx context.Context, brokerAddr string, delay time.Duration, topics ...string) {
	client := &kafkago.Client{
		Addr:    kafkago.TCP(brokerAddr),
		Timeout: 10 * time.Second,
	}

	req := kafkago.CreateTopicsRequest{
		Topics: make([]kafkago.TopicConfig, 0, len(topics)),
	}
	for _, t := range topics {
		req.Topics = append(req.Topics, kafkago.TopicConfig{
			Topic:             t,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("Topic creation canceled")
			return
		default:
		}

		resp, err := client.CreateTopics(ctx, &req)
		if err != nil {
			log.Printf("Topics creation request failed: %v\nNext try in %v...", err, delay)
			time.Sleep(delay)
			continue
		}

		pending := 0
		for topic, tErr := range resp.Errors {
			switch {
			case tErr == nil, errors.Is(tErr, kafkago.TopicAlreadyExists):
			default:
				log.Printf("Topic %q creation error: %v", topic, tErr)
				pending++
			}
		}
		if pending == 0 {
			log.Println("All queue topics are in place")
			return
		}
	}
}

// WaitKafkaReady blocks until the broker accepts a TCP connection.
func WaitKafkaReady(brokerAddr string, delay time.Duration) {
	for {
		conn, err := kafkago.Dial("tcp", brokerAddr)
		if err == nil {
			if errConn := conn.Close(); errConn != nil {
				log.Println("Failed to close Kafka probe connection:", errConn)
			}
			break
		}
		log.Printf("Kafka not ready, retrying in %v...", delay)
		time.Sleep(delay)
	}
	log.Println("Kafka is ready!")
}
