package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create flow_deployments table
			CREATE TABLE flow_deployments (
				namespace VARCHAR(255) NOT NULL,
				path TEXT NOT NULL,
				fingerprint VARCHAR(128) NOT NULL,
				last_modified TIMESTAMP WITH TIME ZONE NOT NULL,
				deployed BOOLEAN NOT NULL DEFAULT FALSE,
				deployed_at TIMESTAMP WITH TIME ZONE,
				deployed_fingerprint VARCHAR(128),
				PRIMARY KEY (namespace, path)
			);

			CREATE INDEX idx_flow_deployments_deployed ON flow_deployments(namespace, deployed);
		`,
	}
}
