package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create jobs table
			CREATE TABLE jobs (
				id VARCHAR(255) PRIMARY KEY,
				job_number VARCHAR(255) NOT NULL UNIQUE,
				customer_name VARCHAR(255),
				quote_type VARCHAR(50) NOT NULL,
				contract_value NUMERIC(14, 2) NOT NULL DEFAULT 0,
				status VARCHAR(50) NOT NULL,
				current_stage VARCHAR(100) NOT NULL,
				version BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_jobs_status ON jobs(status);
			CREATE INDEX idx_jobs_current_stage ON jobs(current_stage);
			CREATE INDEX idx_jobs_created_at ON jobs(created_at);

			-- Create job_workflow_steps table (one row per job per stage)
			CREATE TABLE job_workflow_steps (
				id VARCHAR(255) PRIMARY KEY,
				job_id VARCHAR(255) NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
				stage VARCHAR(100) NOT NULL,
				status VARCHAR(50) NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				assigned_to VARCHAR(255),
				notes TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (job_id, stage)
			);

			CREATE INDEX idx_job_workflow_steps_job_id ON job_workflow_steps(job_id);
			CREATE INDEX idx_job_workflow_steps_status ON job_workflow_steps(status);

			-- Create navigation_records table (append-only audit trail)
			CREATE TABLE navigation_records (
				id VARCHAR(255) PRIMARY KEY,
				job_id VARCHAR(255) NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
				from_stage VARCHAR(100) NOT NULL,
				to_stage VARCHAR(100) NOT NULL,
				direction VARCHAR(20) NOT NULL,
				action VARCHAR(20) NOT NULL,
				is_allowed BOOLEAN NOT NULL,
				requires_approval BOOLEAN NOT NULL DEFAULT FALSE,
				requires_confirmation BOOLEAN NOT NULL DEFAULT FALSE,
				rollback_required BOOLEAN NOT NULL DEFAULT FALSE,
				affected_stages JSONB,
				impact JSONB,
				performed_by VARCHAR(255) NOT NULL,
				reason TEXT,
				notes TEXT,
				data_changes JSONB,
				performed_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_navigation_records_job_id ON navigation_records(job_id);
			CREATE INDEX idx_navigation_records_performed_at ON navigation_records(performed_at);

			-- Create approvals table
			CREATE TABLE approvals (
				id VARCHAR(255) PRIMARY KEY,
				entity_type VARCHAR(50) NOT NULL,
				entity_id VARCHAR(255) NOT NULL,
				approval_type VARCHAR(50) NOT NULL,
				stage VARCHAR(100),
				status VARCHAR(50) NOT NULL,
				priority VARCHAR(20),
				quote_type VARCHAR(50),
				value NUMERIC(14, 2) NOT NULL DEFAULT 0,
				mandatory_approval BOOLEAN NOT NULL DEFAULT FALSE,
				requires_second_approval BOOLEAN NOT NULL DEFAULT FALSE,
				can_self_approve BOOLEAN NOT NULL DEFAULT FALSE,
				requested_by VARCHAR(255) NOT NULL,
				request_notes TEXT,
				requested_at TIMESTAMP WITH TIME ZONE NOT NULL,
				approved_by VARCHAR(255),
				approved_at TIMESTAMP WITH TIME ZONE,
				approval_notes TEXT,
				second_approved_by VARCHAR(255),
				second_approved_at TIMESTAMP WITH TIME ZONE,
				rejected_by VARCHAR(255),
				rejected_at TIMESTAMP WITH TIME ZONE,
				rejection_reason TEXT
			);

			CREATE INDEX idx_approvals_entity ON approvals(entity_type, entity_id);
			CREATE INDEX idx_approvals_status ON approvals(status);
			CREATE INDEX idx_approvals_requested_at ON approvals(requested_at);

			-- At most one open approval per entity and approval type
			CREATE UNIQUE INDEX idx_approvals_open_unique
				ON approvals(entity_type, entity_id, approval_type)
				WHERE status IN ('pending', 'requires_second_approval');
		`,
	}
}
