// Package app implements the "app" generator: it scaffolds an AWS CDK
// application under packages/<name>, registers its esbuild build target and
// its cdk deploy target, writes cdk.json and adds the CDK toolchain to the
// workspace package.json.
package app
