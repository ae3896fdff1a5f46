package dispatcher

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisClientOpt(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		tlsInsecure bool
		wantAddr    string
		wantDB      int
		wantTLS     bool
		wantErr     bool
	}{
		{
			name:     "plain url",
			url:      "redis://localhost:6379",
			wantAddr: "localhost:6379",
		},
		{
			name:     "url with password and db",
			url:      "redis://:secret@redis.internal:6380/2",
			wantAddr: "redis.internal:6380",
			wantDB:   2,
		},
		{
			name:     "rediss enables tls",
			url:      "rediss://redis.internal:6380",
			wantAddr: "redis.internal:6380",
			wantTLS:  true,
		},
		{
			name:        "insecure flag forces tls config",
			url:         "redis://localhost:6379",
			tlsInsecure: true,
			wantAddr:    "localhost:6379",
			wantTLS:     true,
		},
		{
			name:    "malformed url",
			url:     "://not-a-url",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := redisClientOpt(tt.url, tt.tlsInsecure)
			if tt.wantErr {
				if err == nil {
					t.Fatal("redisClientOpt() error = nil, want parse error")
				}
				return
			}
			if err != nil {
				t.Fatalf("redisClientOpt() error = %v", err)
			}
			if opt.Addr != tt.wantAddr {
				t.Errorf("Addr = %q, want %q", opt.Addr, tt.wantAddr)
			}
			if opt.DB != tt.wantDB {
				t.Errorf("DB = %d, want %d", opt.DB, tt.wantDB)
			}
			if (opt.TLSConfig != nil) != tt.wantTLS {
				t.Errorf("TLSConfig set = %v, want %v", opt.TLSConfig != nil, tt.wantTLS)
			}
			if tt.tlsInsecure && opt.TLSConfig != nil && !opt.TLSConfig.InsecureSkipVerify {
				t.Error("TLSConfig.InsecureSkipVerify = false, want true")
			}
		})
	}
}

func TestRedisClientOptReachesServer(t *testing.T) {
	srv := miniredis.RunT(t)

	opt, err := redisClientOpt("redis://"+srv.Addr(), false)
	if err != nil {
		t.Fatalf("redisClientOpt() error = %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: opt.Addr, Password: opt.Password, DB: opt.DB})
	defer client.Close()

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("ping via parsed options failed: %v", err)
	}
}
