package postgresql

// migrations returns the schema migrations keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS campaigns (
				id UUID PRIMARY KEY,
				name TEXT NOT NULL,
				namespace TEXT NOT NULL,
				owner TEXT NOT NULL,
				status TEXT NOT NULL,
				metadata JSONB,
				config JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				UNIQUE (namespace, name)
			);

			CREATE TABLE IF NOT EXISTS nodes (
				id UUID PRIMARY KEY,
				name TEXT NOT NULL,
				version INTEGER NOT NULL,
				namespace UUID NOT NULL REFERENCES campaigns(id),
				kind TEXT NOT NULL,
				status TEXT NOT NULL,
				config JSONB,
				machine_id UUID,
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				UNIQUE (namespace, name, version)
			);

			CREATE INDEX IF NOT EXISTS idx_nodes_namespace ON nodes(namespace);

			CREATE TABLE IF NOT EXISTS edges (
				id UUID PRIMARY KEY,
				namespace UUID NOT NULL REFERENCES campaigns(id),
				source_id UUID NOT NULL,
				target_id UUID NOT NULL,
				name TEXT NOT NULL DEFAULT '',
				config JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_edges_namespace ON edges(namespace);
			CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(namespace, target_id);

			CREATE TABLE IF NOT EXISTS tasks (
				id UUID PRIMARY KEY,
				namespace UUID NOT NULL,
				node_id UUID NOT NULL,
				desired_status TEXT NOT NULL,
				previous_status TEXT NOT NULL,
				priority INTEGER NOT NULL DEFAULT 0,
				site TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				submitted_at TIMESTAMP WITH TIME ZONE,
				finished_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_tasks_unsubmitted
				ON tasks(priority DESC, created_at ASC)
				WHERE submitted_at IS NULL;

			CREATE TABLE IF NOT EXISTS machines (
				id UUID PRIMARY KEY,
				snapshot JSONB NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS activity_log (
				id UUID PRIMARY KEY,
				namespace UUID NOT NULL,
				node_id UUID NOT NULL,
				operator TEXT NOT NULL DEFAULT '',
				from_status TEXT NOT NULL,
				to_status TEXT NOT NULL,
				detail JSONB,
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				finished_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_activity_node ON activity_log(node_id);
			CREATE INDEX IF NOT EXISTS idx_activity_namespace ON activity_log(namespace);

			CREATE TABLE IF NOT EXISTS manifests (
				id UUID PRIMARY KEY,
				namespace TEXT NOT NULL,
				kind TEXT NOT NULL,
				version INTEGER NOT NULL,
				data JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				UNIQUE (namespace, kind, version)
			);
		`,
	}
}
