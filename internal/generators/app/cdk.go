package app

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// CDKConfig is the content of cdk.json.
type CDKConfig struct {
	App     string                              `json:"app"`
	Context *orderedmap.OrderedMap[string, any] `json:"context"`
}

// NewCDKConfig returns the cdk.json for the project called name. Only the
// app entrypoint depends on name; the context block is constant.
func NewCDKConfig(name string) CDKConfig {
	return CDKConfig{
		App:     "dist/" + projectRoot(name) + "/main.js",
		Context: CDKContext(),
	}
}

// CDKContext returns a fresh copy of the feature flags written to cdk.json,
// in their canonical order.
func CDKContext() *orderedmap.OrderedMap[string, any] {
	ctx := orderedmap.New[string, any](len(contextFlags))
	for _, f := range contextFlags {
		v := f.value
		if s, ok := v.([]string); ok {
			v = append([]string(nil), s...)
		}
		ctx.Set(f.key, v)
	}
	return ctx
}

var contextFlags = []struct {
	key   string
	value any
}{
	{"@aws-cdk/aws-lambda:recognizeLayerVersion", true},
	{"@aws-cdk/core:checkSecretUsage", true},
	{"@aws-cdk/core:target-partitions", []string{"aws", "aws-cn"}},
	{"@aws-cdk-containers/ecs-service-extensions:enableDefaultLogDriver", true},
	{"@aws-cdk/aws-ec2:uniqueImdsv2TemplateName", true},
	{"@aws-cdk/aws-ecs:arnFormatIncludesClusterName", true},
	{"@aws-cdk/aws-iam:minimizePolicies", true},
	{"@aws-cdk/core:validateSnapshotRemovalPolicy", true},
	{"@aws-cdk/aws-codepipeline:crossAccountKeyAliasStackSafeResourceName", true},
	{"@aws-cdk/aws-s3:createDefaultLoggingPolicy", true},
	{"@aws-cdk/aws-sns-subscriptions:restrictSqsDescryption", true},
	{"@aws-cdk/aws-apigateway:disableCloudWatchRole", true},
	{"@aws-cdk/core:enablePartitionLiterals", true},
	{"@aws-cdk/aws-events:eventsTargetQueueSameAccount", true},
	{"@aws-cdk/aws-iam:standardizedServicePrincipals", true},
	{"@aws-cdk/aws-ecs:disableExplicitDeploymentControllerForCircuitBreaker", true},
	{"@aws-cdk/aws-iam:importedRoleStackSafeDefaultPolicyName", true},
	{"@aws-cdk/aws-s3:serverAccessLogsUseBucketPolicy", true},
	{"@aws-cdk/aws-route53-patters:useCertificate", true},
	{"@aws-cdk/customresources:installLatestAwsSdkDefault", false},
	{"@aws-cdk/aws-rds:databaseProxyUniqueResourceName", true},
	{"@aws-cdk/aws-codedeploy:removeAlarmsFromDeploymentGroup", true},
	{"@aws-cdk/aws-apigateway:authorizerChangeDeploymentLogicalId", true},
	{"@aws-cdk/aws-ec2:launchTemplateDefaultUserData", true},
	{"@aws-cdk/aws-secretsmanager:useAttachedSecretResourcePolicyForSecretTargetAttachments", true},
	{"@aws-cdk/aws-redshift:columnId", true},
	{"@aws-cdk/aws-stepfunctions-tasks:enableEmrServicePolicyV2", true},
	{"@aws-cdk/aws-ec2:restrictDefaultSecurityGroup", true},
	{"@aws-cdk/aws-apigateway:requestValidatorUniqueId", true},
	{"@aws-cdk/aws-kms:aliasNameRef", true},
	{"@aws-cdk/core:includePrefixInUniqueNameGeneration", true},
}
