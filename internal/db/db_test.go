package db

import (
	"testing"

	"github.com/shinyyama/social-market/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			name: "mysql tcp",
			cfg:  config.Config{DBDriver: "mysql", DBUser: "u", DBPassword: "p", DBHost: "db", DBName: "market"},
			want: "u:p@tcp(db:3306)/market?charset=utf8mb4&parseTime=True&loc=Local",
		},
		{
			name: "mysql cloud sql",
			cfg:  config.Config{DBDriver: "mysql", DBUser: "u", DBPassword: "p", DBName: "market", InstanceConnectionName: "proj:region:inst"},
			want: "u:p@unix(/cloudsql/proj:region:inst)/market?charset=utf8mb4&parseTime=True&loc=Local",
		},
		{
			name: "mysql socket path",
			cfg:  config.Config{DBDriver: "mysql", DBUser: "u", DBPassword: "p", DBHost: "/tmp/mysql.sock", DBName: "market"},
			want: "u:p@unix(/tmp/mysql.sock)/market?charset=utf8mb4&parseTime=True&loc=Local",
		},
		{
			name: "postgres",
			cfg:  config.Config{DBDriver: "postgres", DBUser: "u", DBPassword: "p", DBHost: "pg", DBName: "market"},
			want: "host=pg port=5432 user=u password=p dbname=market sslmode=disable TimeZone=UTC",
		},
		{
			name: "sqlite",
			cfg:  config.Config{DBDriver: "sqlite", SQLitePath: ":memory:"},
			want: ":memory:",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildDSN(&tt.cfg))
		})
	}
}

func TestConnectAndMigrateSQLite(t *testing.T) {
	gdb, err := Connect(&config.Config{DBDriver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))

	for _, table := range []string{"users", "rooms", "room_participants", "messages", "item_messages", "notifications", "post_reactions"} {
		assert.True(t, gdb.Migrator().HasTable(table), table)
	}
}
