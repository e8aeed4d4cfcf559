package kuay

import "kabinet.io/kabinet/sdk"

var (
	createGithubRepoOperation = sdk.Operation{
		Name:     "create_githubrepo",
		Kind:     sdk.KindMutation,
		Document: "fragment GithubRepo on GithubRepo {\n  user\n  branch\n  repo\n  id\n}\n\nmutation create_githubrepo($branch: String!, $user: String!, $repo: String!) {\n  createGithubRepo(branch: $branch, user: $user, repo: $repo) {\n    ...GithubRepo\n  }\n}",
	}

	getGithubRepoOperation = sdk.Operation{
		Name:     "get_github_repo",
		Kind:     sdk.KindQuery,
		Document: "fragment GithubRepo on GithubRepo {\n  user\n  branch\n  repo\n  id\n}\n\nquery get_github_repo($id: ID!) {\n  githubRepo(id: $id) {\n    ...GithubRepo\n  }\n}",
	}

	searchGithubReposOperation = sdk.Operation{
		Name:     "search_githubrepo",
		Kind:     sdk.KindQuery,
		Document: "query search_githubrepo($search: String!) {\n  githubRepos(name: $search) {\n    value: id\n    label: repo\n  }\n}",
	}
)
