package kabinet

import "kabinet.io/kabinet/sdk"

// Kabinet operation documents. Fragments are inlined so every document is
// self contained.
var (
	createDeploymentOperation = sdk.Operation{
		Name:     "CreateDeployment",
		Kind:     sdk.KindMutation,
		Document: "fragment Deployment on Deployment {\n  id\n  localId\n}\n\nmutation CreateDeployment($flavour: ID!, $instanceId: String!, $localId: ID!, $lastPulled: DateTime, $secretParams: UntypedParams) {\n  createDeployment(\n    input: {flavour: $flavour, lastPulled: $lastPulled, secretParams: $secretParams, instanceId: $instanceId, localId: $localId}\n  ) {\n    ...Deployment\n  }\n}",
	}

	createPodOperation = sdk.Operation{
		Name:     "CreatePod",
		Kind:     sdk.KindMutation,
		Document: "fragment Release on Release {\n  id\n  version\n  app {\n    identifier\n  }\n  scopes\n  colour\n  description\n  flavours {\n    id\n    name\n    image\n    manifest\n    requirements\n  }\n}\n\nfragment Flavour on Flavour {\n  release {\n    ...Release\n  }\n  manifest\n}\n\nfragment Pod on Pod {\n  id\n  podId\n  deployment {\n    flavour {\n      ...Flavour\n    }\n  }\n}\n\nmutation CreatePod($deployment: ID!, $instanceId: String!, $localId: ID!) {\n  createPod(\n    input: {deployment: $deployment, instanceId: $instanceId, localId: $localId}\n  ) {\n    ...Pod\n  }\n}",
	}

	updatePodOperation = sdk.Operation{
		Name:     "UpdatePod",
		Kind:     sdk.KindMutation,
		Document: "fragment Release on Release {\n  id\n  version\n  app {\n    identifier\n  }\n  scopes\n  colour\n  description\n  flavours {\n    id\n    name\n    image\n    manifest\n    requirements\n  }\n}\n\nfragment Flavour on Flavour {\n  release {\n    ...Release\n  }\n  manifest\n}\n\nfragment Pod on Pod {\n  id\n  podId\n  deployment {\n    flavour {\n      ...Flavour\n    }\n  }\n}\n\nmutation UpdatePod($status: PodStatus!, $instanceId: String!, $pod: ID, $localId: ID) {\n  updatePod(\n    input: {pod: $pod, localId: $localId, status: $status, instanceId: $instanceId}\n  ) {\n    ...Pod\n  }\n}",
	}

	dumpLogsOperation = sdk.Operation{
		Name:     "DumpLogs",
		Kind:     sdk.KindMutation,
		Document: "mutation DumpLogs($pod: ID!, $logs: String!) {\n  dumpLogs(input: {pod: $pod, logs: $logs}) {\n    pod {\n      id\n    }\n    logs\n  }\n}",
	}

	createGithubRepoOperation = sdk.Operation{
		Name:     "CreateGithubRepo",
		Kind:     sdk.KindMutation,
		Document: "fragment GithubRepo on GithubRepo {\n  id\n  branch\n  user\n  repo\n  flavours {\n    definitions {\n      id\n      hash\n    }\n  }\n}\n\nmutation CreateGithubRepo($user: String!, $repo: String!, $branch: String!, $name: String!) {\n  createGithubRepo(\n    input: {user: $user, repo: $repo, branch: $branch, name: $name}\n  ) {\n    ...GithubRepo\n  }\n}",
	}

	declareBackendOperation = sdk.Operation{
		Name:     "DeclareBackend",
		Kind:     sdk.KindMutation,
		Document: "mutation DeclareBackend($instanceId: String!, $kind: String!, $name: String!) {\n  declareBackend(input: {kind: $kind, instanceId: $instanceId, name: $name}) {\n    id\n    name\n  }\n}",
	}

	listReleasesOperation = sdk.Operation{
		Name:     "ListReleases",
		Kind:     sdk.KindQuery,
		Document: "fragment ListFlavour on Flavour {\n  id\n  name\n  manifest\n}\n\nfragment ListRelease on Release {\n  id\n  version\n  app {\n    identifier\n  }\n  installed\n  scopes\n  flavours {\n    ...ListFlavour\n  }\n  colour\n  description\n}\n\nquery ListReleases {\n  releases {\n    ...ListRelease\n  }\n}",
	}

	getReleaseOperation = sdk.Operation{
		Name:     "GetRelease",
		Kind:     sdk.KindQuery,
		Document: "fragment Release on Release {\n  id\n  version\n  app {\n    identifier\n  }\n  scopes\n  colour\n  description\n  flavours {\n    id\n    name\n    image\n    manifest\n    requirements\n  }\n}\n\nquery GetRelease($id: ID!) {\n  release(id: $id) {\n    ...Release\n  }\n}",
	}

	getDeploymentOperation = sdk.Operation{
		Name:     "GetDeployment",
		Kind:     sdk.KindQuery,
		Document: "fragment Deployment on Deployment {\n  id\n  localId\n}\n\nquery GetDeployment($id: ID!) {\n  deployment(id: $id) {\n    ...Deployment\n  }\n}",
	}

	listDeploymentsOperation = sdk.Operation{
		Name:     "ListDeployments",
		Kind:     sdk.KindQuery,
		Document: "fragment ListDeployment on Deployment {\n  id\n  localId\n}\n\nquery ListDeployments {\n  deployments {\n    ...ListDeployment\n  }\n}",
	}

	listPodOperation = sdk.Operation{
		Name:     "ListPod",
		Kind:     sdk.KindQuery,
		Document: "fragment ListPod on Pod {\n  id\n  podId\n}\n\nquery ListPod {\n  pods {\n    ...ListPod\n  }\n}",
	}

	getPodOperation = sdk.Operation{
		Name:     "GetPod",
		Kind:     sdk.KindQuery,
		Document: "fragment Release on Release {\n  id\n  version\n  app {\n    identifier\n  }\n  scopes\n  colour\n  description\n  flavours {\n    id\n    name\n    image\n    manifest\n    requirements\n  }\n}\n\nfragment Flavour on Flavour {\n  release {\n    ...Release\n  }\n  manifest\n}\n\nfragment Pod on Pod {\n  id\n  podId\n  deployment {\n    flavour {\n      ...Flavour\n    }\n  }\n}\n\nquery GetPod($id: ID!) {\n  pod(id: $id) {\n    ...Pod\n  }\n}",
	}

	listDefinitionsOperation = sdk.Operation{
		Name:     "ListDefinitions",
		Kind:     sdk.KindQuery,
		Document: "fragment ListDefinition on Definition {\n  id\n  name\n  hash\n  description\n}\n\nquery ListDefinitions {\n  definitions {\n    ...ListDefinition\n  }\n}",
	}

	getDefinitionOperation = sdk.Operation{
		Name:     "GetDefinition",
		Kind:     sdk.KindQuery,
		Document: "fragment Definition on Definition {\n  id\n  name\n}\n\nquery GetDefinition($hash: NodeHash) {\n  definition(hash: $hash) {\n    ...Definition\n  }\n}",
	}

	searchDefinitionsOperation = sdk.Operation{
		Name:     "SearchDefinitions",
		Kind:     sdk.KindQuery,
		Document: "query SearchDefinitions($search: String, $values: [ID!]) {\n  options: definitions(\n    filters: {search: $search, ids: $values}\n    pagination: {limit: 10}\n  ) {\n    value: id\n    label: name\n  }\n}",
	}

	matchFlavourOperation = sdk.Operation{
		Name:     "MatchFlavour",
		Kind:     sdk.KindQuery,
		Document: "query MatchFlavour($nodes: [NodeHash!], $environment: EnvironmentInput) {\n  matchFlavour(input: {nodes: $nodes, environment: $environment}) {\n    id\n    image\n  }\n}",
	}

	listFlavoursOperation = sdk.Operation{
		Name:     "ListFlavours",
		Kind:     sdk.KindQuery,
		Document: "fragment ListFlavour on Flavour {\n  id\n  name\n  manifest\n}\n\nquery ListFlavours($filters: FlavourFilter, $order: FlavourOrder, $pagination: OffsetPaginationInput) {\n  flavours(filters: $filters, order: $order, pagination: $pagination) {\n    ...ListFlavour\n  }\n}",
	}

	listBackendsOperation = sdk.Operation{
		Name:     "ListBackends",
		Kind:     sdk.KindQuery,
		Document: "fragment Backend on Backend {\n  id\n  name\n  kind\n  instanceId\n}\n\nquery ListBackends {\n  backends {\n    ...Backend\n  }\n}",
	}

	getBackendOperation = sdk.Operation{
		Name:     "GetBackend",
		Kind:     sdk.KindQuery,
		Document: "fragment Backend on Backend {\n  id\n  name\n  kind\n  instanceId\n}\n\nquery GetBackend($id: ID!) {\n  backend(id: $id) {\n    ...Backend\n  }\n}",
	}

	listResourcesOperation = sdk.Operation{
		Name:     "ListResources",
		Kind:     sdk.KindQuery,
		Document: "fragment ListResource on Resource {\n  id\n  name\n  resourceId\n  backend {\n    id\n    name\n  }\n}\n\nquery ListResources {\n  resources {\n    ...ListResource\n  }\n}",
	}

	watchPodsOperation = sdk.Operation{
		Name:     "WatchPods",
		Kind:     sdk.KindSubscription,
		Document: "fragment ListPod on Pod {\n  id\n  podId\n}\n\nsubscription WatchPods($backend: ID) {\n  pods(backend: $backend) {\n    create {\n      ...ListPod\n    }\n    update {\n      ...ListPod\n    }\n    delete\n  }\n}",
	}
)
