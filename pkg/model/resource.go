// pkg/model/resource.go
package model

import "strings"

// ResourceType is the coarse class of a monitored resource.
type ResourceType string

const (
	ResourceCompute    ResourceType = "compute"
	ResourceDatabase   ResourceType = "database"
	ResourceStorage    ResourceType = "storage"
	ResourceNetwork    ResourceType = "network"
	ResourceContainer  ResourceType = "container"
	ResourceServerless ResourceType = "serverless"
)

// ResourceTypes lists every known resource type.
var ResourceTypes = []ResourceType{
	ResourceCompute, ResourceDatabase, ResourceStorage,
	ResourceNetwork, ResourceContainer, ResourceServerless,
}

// Checked in order; the first matching keyword wins. Container and serverless
// come before compute so "ecs-instance" or "lambda-vm" classify by platform.
var resourceKeywords = []struct {
	kind     ResourceType
	keywords []string
}{
	{ResourceServerless, []string{"lambda", "function", "serverless", "faas"}},
	{ResourceContainer, []string{"container", "ecs", "eks", "aks", "gke", "k8s", "kube", "pod"}},
	{ResourceDatabase, []string{"rds", "database", "db", "sql", "dynamo", "cosmos", "redis", "cache"}},
	{ResourceStorage, []string{"s3", "bucket", "storage", "blob", "disk", "volume", "ebs"}},
	{ResourceNetwork, []string{"vpc", "subnet", "elb", "alb", "nlb", "lb", "gateway", "network", "cdn"}},
	{ResourceCompute, []string{"ec2", "vm", "instance", "compute", "server", "node"}},
}

// InferResourceType classifies a cloud resource id by keyword. Unknown ids
// default to compute.
func InferResourceType(resourceID string) ResourceType {
	id := strings.ToLower(resourceID)
	for _, rk := range resourceKeywords {
		for _, kw := range rk.keywords {
			if strings.Contains(id, kw) {
				return rk.kind
			}
		}
	}
	return ResourceCompute
}
