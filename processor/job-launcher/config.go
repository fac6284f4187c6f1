package joblauncher

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/c360studio/corevalid-adapter/objectstore"
	"github.com/c360studio/corevalid-adapter/storage"
	"github.com/c360studio/semstreams/component"
)

// launcherSchema defines the configuration schema.
var launcherSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Marker backends.
const (
	MarkerBackendMemory = "memory"
	MarkerBackendRedis  = "redis"
	MarkerBackendKV     = "kv"
)

// Config holds configuration for the job-launcher component.
type Config struct {
	// TaskStreamName is the JetStream stream carrying task updates.
	TaskStreamName string `json:"task_stream_name" schema:"type:string,description:JetStream stream for task updates,category:basic,default:TASK"`

	// TaskSubject is the subject task snapshots are published on.
	TaskSubject string `json:"task_subject" schema:"type:string,description:Subject of task update events,category:basic,default:task.updated"`

	// ConsumerName is the durable consumer for task updates.
	ConsumerName string `json:"consumer_name" schema:"type:string,description:Durable consumer name for task updates,category:advanced,default:corevalid-adapter-task-updates"`

	// ManualRunSubject carries task snapshots the task manager publishes
	// when an operator asks for a run. They are launched without the
	// in-flight check of the HTTP entry point.
	ManualRunSubject string `json:"manual_run_subject" schema:"type:string,description:Subject of manual run requests from the task manager,category:basic,default:task.run.manual"`

	// ManualConsumerName is the durable consumer for manual run requests.
	ManualConsumerName string `json:"manual_consumer_name" schema:"type:string,description:Durable consumer name for manual run requests,category:advanced,default:corevalid-adapter-manual-runs"`

	// RunStreamName is the stream run requests are published to.
	RunStreamName string `json:"run_stream_name" schema:"type:string,description:JetStream stream for run requests,category:basic,default:CORE_VALID"`

	// RunSubject is the subject run requests are published on.
	RunSubject string `json:"run_subject" schema:"type:string,description:Subject of run requests,category:basic,default:corevalid.run.request"`

	// TaskManagerTimestampURL is the lookup endpoint prefix; the timestamp
	// is appended to it.
	TaskManagerTimestampURL string `json:"task_manager_timestamp_url" schema:"type:string,description:Task manager timestamp lookup URL prefix,category:basic,default:http://localhost:8080/tasks/"`

	// LookupTimeout bounds a single task manager request, e.g. "10s".
	LookupTimeout string `json:"lookup_timeout" schema:"type:string,description:Timeout of one task manager request,category:advanced,default:10s"`

	// AutoTriggerFiletypes lists input file types whose arrival triggers an
	// automatic launch. Empty launches on every READY update.
	AutoTriggerFiletypes []string `json:"auto_trigger_filetypes,omitempty" schema:"type:array,description:File types that trigger automatic launches,category:basic"`

	// Whitelist lists the URL prefixes file URLs must start with. Empty
	// disables the check.
	Whitelist []string `json:"whitelist,omitempty" schema:"type:array,description:Allowed file URL prefixes,category:advanced"`

	// ObjectStore configures presigned URL generation.
	ObjectStore objectstore.Config `json:"object_store" schema:"type:object,description:Object store connection for presigned URLs,category:basic"`

	// MarkerBackend selects where in-flight manual launches are tracked.
	MarkerBackend string `json:"marker_backend" schema:"type:string,description:In-flight marker backend (memory or redis or kv),category:advanced,default:memory"`

	// RedisAddr is the Redis address for the redis marker backend.
	RedisAddr string `json:"redis_addr,omitempty" schema:"type:string,description:Redis address for shared markers,category:advanced"`

	// MarkerBucket is the NATS KV bucket for the kv marker backend.
	MarkerBucket string `json:"marker_bucket,omitempty" schema:"type:string,description:NATS KV bucket for shared markers,category:advanced,default:CORE_VALID_LAUNCHES"`

	// MarkerTTL bounds how long a shared marker outlives a crashed holder.
	MarkerTTL string `json:"marker_ttl,omitempty" schema:"type:string,description:Expiry of shared markers,category:advanced,default:30m"`

	// Ports contains input/output port definitions.
	Ports *component.PortConfig `json:"ports,omitempty" schema:"type:ports,description:Input/output port definitions,category:basic"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		TaskStreamName:          "TASK",
		TaskSubject:             "task.updated",
		ConsumerName:            "corevalid-adapter-task-updates",
		ManualRunSubject:        "task.run.manual",
		ManualConsumerName:      "corevalid-adapter-manual-runs",
		RunStreamName:           "CORE_VALID",
		RunSubject:              "corevalid.run.request",
		TaskManagerTimestampURL: "http://localhost:8080/tasks/",
		LookupTimeout:           "10s",
		ObjectStore:             objectstore.DefaultConfig(),
		MarkerBackend:           MarkerBackendMemory,
		MarkerBucket:            storage.DefaultMarkerBucket,
		MarkerTTL:               "30m",
		Ports:                   defaultPorts("TASK", "task.updated", "task.run.manual", "CORE_VALID", "corevalid.run.request"),
	}
}

// defaultPorts describes the task inputs and the run request output.
func defaultPorts(taskStream, taskSubject, manualSubject, runStream, runSubject string) *component.PortConfig {
	return &component.PortConfig{
		Inputs: []component.PortDefinition{
			{
				Name:        "task-updates",
				Type:        "jetstream",
				Subject:     taskSubject,
				StreamName:  taskStream,
				Description: "Task snapshots published by the task manager",
				Required:    true,
			},
			{
				Name:        "manual-run-requests",
				Type:        "jetstream",
				Subject:     manualSubject,
				StreamName:  taskStream,
				Description: "Manual run requests published by the task manager",
				Required:    false,
			},
		},
		Outputs: []component.PortDefinition{
			{
				Name:        "run-requests",
				Type:        "jetstream",
				Subject:     runSubject,
				StreamName:  runStream,
				Description: "Run requests for the compute service",
				Required:    true,
			},
		},
	}
}

// ParseConfig decodes raw component config, fills unset fields from
// DefaultConfig and validates the result.
func ParseConfig(raw json.RawMessage) (Config, error) {
	var config Config
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &config); err != nil {
			return Config{}, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// applyDefaults fills unset fields from DefaultConfig.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.TaskStreamName == "" {
		c.TaskStreamName = d.TaskStreamName
	}
	if c.TaskSubject == "" {
		c.TaskSubject = d.TaskSubject
	}
	if c.ConsumerName == "" {
		c.ConsumerName = d.ConsumerName
	}
	if c.ManualRunSubject == "" {
		c.ManualRunSubject = d.ManualRunSubject
	}
	if c.ManualConsumerName == "" {
		c.ManualConsumerName = d.ManualConsumerName
	}
	if c.RunStreamName == "" {
		c.RunStreamName = d.RunStreamName
	}
	if c.RunSubject == "" {
		c.RunSubject = d.RunSubject
	}
	if c.TaskManagerTimestampURL == "" {
		c.TaskManagerTimestampURL = d.TaskManagerTimestampURL
	}
	if c.LookupTimeout == "" {
		c.LookupTimeout = d.LookupTimeout
	}
	c.ObjectStore = c.ObjectStore.WithDefaults()
	if c.MarkerBackend == "" {
		c.MarkerBackend = d.MarkerBackend
	}
	if c.MarkerBucket == "" {
		c.MarkerBucket = d.MarkerBucket
	}
	if c.MarkerTTL == "" {
		c.MarkerTTL = d.MarkerTTL
	}
	if c.Ports == nil {
		c.Ports = defaultPorts(c.TaskStreamName, c.TaskSubject, c.ManualRunSubject, c.RunStreamName, c.RunSubject)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.TaskStreamName == "" {
		return fmt.Errorf("task_stream_name is required")
	}
	if c.TaskSubject == "" {
		return fmt.Errorf("task_subject is required")
	}
	if c.ManualRunSubject == "" {
		return fmt.Errorf("manual_run_subject is required")
	}
	if c.ManualRunSubject == c.TaskSubject {
		return fmt.Errorf("manual_run_subject must differ from task_subject")
	}
	if c.ConsumerName == c.ManualConsumerName {
		return fmt.Errorf("consumer_name and manual_consumer_name must differ")
	}
	if c.RunSubject == "" {
		return fmt.Errorf("run_subject is required")
	}
	if c.TaskManagerTimestampURL == "" {
		return fmt.Errorf("task_manager_timestamp_url is required")
	}
	if _, err := c.lookupTimeout(); err != nil {
		return err
	}
	if err := c.ObjectStore.Validate(); err != nil {
		return err
	}

	switch c.MarkerBackend {
	case MarkerBackendMemory:
	case MarkerBackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required for the redis marker backend")
		}
		if _, err := c.markerTTL(); err != nil {
			return err
		}
	case MarkerBackendKV:
		if c.MarkerBucket == "" {
			return fmt.Errorf("marker_bucket is required for the kv marker backend")
		}
		if _, err := c.markerTTL(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown marker_backend %q", c.MarkerBackend)
	}
	return nil
}

func (c *Config) lookupTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.LookupTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid lookup_timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("lookup_timeout must be positive")
	}
	return d, nil
}

func (c *Config) markerTTL() (time.Duration, error) {
	if c.MarkerTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.MarkerTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid marker_ttl: %w", err)
	}
	return d, nil
}
