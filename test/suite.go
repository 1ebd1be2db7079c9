/*
Package test runs carlot end to end against real infrastructure: a postgres store and
a kafka notifier in containers, the API served over HTTP.

The suite is skipped unless CARLOT_INTEGRATION is set, it needs a docker daemon.
*/
package test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/relabs-tech/carlot/core/access"
	"github.com/relabs-tech/carlot/core/api"
	"github.com/relabs-tech/carlot/core/client"
	"github.com/relabs-tech/carlot/core/csql"
	"github.com/relabs-tech/carlot/core/notify"
	"github.com/relabs-tech/carlot/core/store/postgres"
)

const (
	adminUsername = "admin"
	adminPassword = "integration"
)

// IntegrationTestSuite starts postgres, zookeeper and kafka once per suite
type IntegrationTestSuite struct {
	suite.Suite

	network           *testcontainers.DockerNetwork
	postgresContainer testcontainers.Container
	zooContainer      testcontainers.Container
	kafkaContainer    testcontainers.Container
	kafkaConn         *kafka.Conn
	kafkaAddr         string

	store    *postgres.Store
	notifier *notify.Kafka
	router   *mux.Router
	server   *httptest.Server

	// topic receives all notifications of the suite
	topic        string
	client       client.Client
	clientNoAuth client.Client
}

func (s *IntegrationTestSuite) createTopic(topic string, numPartitions int) error {
	if s.kafkaConn == nil {
		return fmt.Errorf("kafka connection is not established")
	}

	err := s.kafkaConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     numPartitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to create topic %s: %w", topic, err)
	}
	return nil
}

func (s *IntegrationTestSuite) deleteTopic(topic string) error {
	if s.kafkaConn == nil {
		return fmt.Errorf("kafka connection is not established")
	}

	err := s.kafkaConn.DeleteTopics(topic)
	if err != nil {
		return fmt.Errorf("failed to delete topic %s: %w", topic, err)
	}
	return nil
}

// reader returns a reader for the notification topic in a new consumer group
func (s *IntegrationTestSuite) reader() *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{s.kafkaAddr},
		Topic:       s.topic,
		GroupID:     "carlot-test-" + uuid.NewString(),
		StartOffset: kafka.FirstOffset,
		MaxWait:     500 * time.Millisecond,
	})
}

func (s *IntegrationTestSuite) SetupSuite() {
	if os.Getenv("CARLOT_INTEGRATION") == "" {
		s.T().Skip("set CARLOT_INTEGRATION to run the integration tests")
	}
	ctx := context.Background()

	// a shared Docker network for Kafka and Zookeeper
	net, err := network.New(ctx)
	s.Require().NoError(err)
	s.network = net
	networkName := net.Name

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		Networks:       []string{networkName},
		NetworkAliases: map[string][]string{networkName: {"postgres"}},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	s.Require().NoError(err)
	s.postgresContainer = pgC

	pgHost, err := pgC.Host(ctx)
	s.Require().NoError(err)
	pgPort, err := pgC.MappedPort(ctx, "5432")
	s.Require().NoError(err)

	zooReq := testcontainers.ContainerRequest{
		Image:        "confluentinc/cp-zookeeper:7.5.0",
		ExposedPorts: []string{"2181/tcp"},
		Env: map[string]string{
			"ZOOKEEPER_CLIENT_PORT": "2181",
			"ZOOKEEPER_TICK_TIME":   "2000",
		},
		WaitingFor:     wait.ForListeningPort("2181/tcp"),
		Networks:       []string{networkName},
		NetworkAliases: map[string][]string{networkName: {"zookeeper"}},
	}
	s.zooContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: zooReq,
		Started:          true,
	})
	s.Require().NoError(err)

	kafkaReq := testcontainers.ContainerRequest{
		Image:        "confluentinc/cp-kafka:7.5.0",
		ExposedPorts: []string{"9092:9092/tcp", "29092:29092/tcp"},
		Env: map[string]string{
			"KAFKA_BROKER_ID":                        "1",
			"KAFKA_ZOOKEEPER_CONNECT":                "zookeeper:2181",
			"KAFKA_LISTENERS":                        "PLAINTEXT://0.0.0.0:9092,PLAINTEXT_HOST://0.0.0.0:29092,EXTERNAL://0.0.0.0:9093",
			"KAFKA_ADVERTISED_LISTENERS":             "PLAINTEXT://localhost:9092,PLAINTEXT_HOST://localhost:29092,EXTERNAL://kafka:9093",
			"KAFKA_LISTENER_SECURITY_PROTOCOL_MAP":   "PLAINTEXT:PLAINTEXT,PLAINTEXT_HOST:PLAINTEXT,EXTERNAL:PLAINTEXT",
			"KAFKA_OFFSETS_TOPIC_REPLICATION_FACTOR": "1",
			"ALLOW_PLAINTEXT_LISTENER":               "yes",
		},
		WaitingFor:     wait.ForLog("started (kafka.server.KafkaServer)"),
		Networks:       []string{networkName},
		NetworkAliases: map[string][]string{networkName: {"kafka"}},
	}
	kafkaC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: kafkaReq,
		Started:          true,
	})
	s.Require().NoError(err)
	s.kafkaContainer = kafkaC

	kafkaHost, err := kafkaC.Host(ctx)
	s.Require().NoError(err)
	kafkaPort, err := kafkaC.MappedPort(ctx, "9092")
	s.Require().NoError(err)
	s.kafkaAddr = fmt.Sprintf("%s:%s", kafkaHost, kafkaPort.Port())

	s.kafkaConn, err = kafka.Dial("tcp", s.kafkaAddr)
	s.Require().NoError(err)
	s.topic = "carlot_notification_" + uuid.NewString()[:8]
	s.Require().NoError(s.createTopic(s.topic, 3), "Failed to create notification topic")

	db, err := csql.OpenWithSchema(fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable",
		pgHost, pgPort.Port()), "carlot")
	s.Require().NoError(err)
	s.store, err = postgres.New(db)
	s.Require().NoError(err)
	s.Require().NoError(access.EnsureAdmin(ctx, s.store, adminUsername, adminPassword))

	s.notifier, err = notify.NewKafka([]string{s.kafkaAddr}, s.topic)
	s.Require().NoError(err)

	s.router = mux.NewRouter()
	api.New(&api.Builder{
		Store:    s.store,
		Router:   s.router,
		Issuer:   access.NewTokenIssuer("integration-access", "integration-refresh", "carlot-integration"),
		Notifier: s.notifier,
	})
	s.server = httptest.NewServer(s.router)

	s.clientNoAuth = client.NewWithURL(s.server.URL)
	var pair access.TokenPair
	_, err = s.clientNoAuth.RawPost("/api/auth/login", map[string]string{
		"username": adminUsername,
		"password": adminPassword,
	}, &pair)
	s.Require().NoError(err)
	s.client = s.clientNoAuth.WithToken(pair.AccessToken)
}

func (s *IntegrationTestSuite) TearDownSuite() {
	ctx := context.Background()
	if s.server != nil {
		s.server.Close()
	}
	if s.notifier != nil {
		s.Require().NoError(s.notifier.Close())
	}
	if s.store != nil {
		s.Require().NoError(s.store.Close())
	}
	if s.kafkaConn != nil {
		s.deleteTopic(s.topic)
		s.kafkaConn.Close()
	}
	for _, c := range []testcontainers.Container{s.kafkaContainer, s.zooContainer, s.postgresContainer} {
		if c != nil {
			s.Require().NoError(c.Terminate(ctx))
		}
	}
	if s.network != nil {
		s.network.Remove(ctx)
	}
}
