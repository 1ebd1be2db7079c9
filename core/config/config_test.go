package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"STORE", "POSTGRES_SCHEMA", "ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL", "PORT", "KSS_DRIVER", "INQUIRY_BURST", "ADMIN_USERNAME"} {
		t.Setenv(key, "")
	}
	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, s.Store)
	assert.Equal(t, "carlot", s.PostgresSchema)
	assert.Equal(t, 15*time.Minute, s.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, s.RefreshTokenTTL)
	assert.Equal(t, 3000, s.Port)
	assert.Equal(t, "local", s.KSSDriver)
	assert.Equal(t, 5, s.InquiryBurst)
	assert.False(t, s.TrustProxy)
}

func TestLoad_Postgres(t *testing.T) {
	t.Setenv("STORE", "postgres")
	t.Setenv("POSTGRES", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("POSTGRES", "host=localhost dbname=postgres")
	t.Setenv("POSTGRES_PASSWORD", "docker")
	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "host=localhost dbname=postgres password=docker", s.PostgresDataSource())
}

func TestValidate(t *testing.T) {
	valid := Service{Store: StoreMemory, AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}
	require.NoError(t, valid.Validate())

	s := valid
	s.Store = "redis"
	assert.Error(t, s.Validate())

	s = valid
	s.KSSDriver = "s3"
	assert.Error(t, s.Validate())

	s = valid
	s.AdminUsername = "admin"
	assert.Error(t, s.Validate())

	s = valid
	s.AccessTokenTTL = 0
	assert.Error(t, s.Validate())
}

func TestBrokers(t *testing.T) {
	s := Service{KafkaBrokers: "kafka-1:9092, kafka-2:9092,"}
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, s.Brokers())
	s.KafkaBrokers = ""
	assert.Empty(t, s.Brokers())
}
